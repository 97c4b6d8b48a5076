package tui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/gallery"
	"github.com/mmcdole/photure/internal/tui/components"
	"github.com/mmcdole/photure/internal/viewer"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateGallery ApplicationState = iota
	StateViewer
	StateHelp
	StateConfirmDelete
	StateConfirmLogout
)

const (
	// Vertical layout: single footer line
	ChromeHeight = 1

	// Target width of one grid cell
	CellWidth = 26

	spinnerInterval = 100 * time.Millisecond
)

// Options configures the gallery presentation
type Options struct {
	Sort     *domain.SortSpec
	Grouping domain.Grouping
	Location *time.Location // nil = local time
	Columns  int            // Upper bound on grid columns
	Logger   *slog.Logger
}

// uploadState tracks the upload shown in the footer
type uploadState struct {
	active  bool
	file    string
	percent int
	queued  int
}

// imageRender memoizes the last rendered viewer image
type imageRender struct {
	key string
	out string
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// returnState is where confirmations and help go back to
	returnState ApplicationState

	// Services
	Controller *gallery.Controller
	projector  *gallery.Projector

	// UI Components
	Grid        components.Grid
	Viewer      *viewer.Viewer
	SortModal   components.SortModal
	UploadModal components.InputModal

	// Presentation
	Sort       *domain.SortSpec
	Grouping   domain.Grouping
	maxColumns int

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int

	hasInitiallyLoaded bool
	pendingDelete      *domain.Photo
	requestedImage     string
	upload             uploadState
	render             *imageRender

	logger *slog.Logger
}

// NewModel creates a new application model
func NewModel(ctrl *gallery.Controller, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	columns := opts.Columns
	if columns < 1 {
		columns = 4
	}

	uploadModal := components.NewInputModal()
	uploadModal.SetSuggest(SuggestPaths)

	grid := components.NewGrid(columns)
	grid.SetFocused(true)

	return Model{
		State:              StateGallery,
		Controller:         ctrl,
		projector:          gallery.NewProjector(opts.Location),
		Grid:               grid,
		Viewer:             viewer.New(),
		SortModal:          components.NewSortModal(),
		UploadModal:        uploadModal,
		Sort:               opts.Sort,
		Grouping:           opts.Grouping,
		maxColumns:         columns,
		hasInitiallyLoaded: ctrl.Session().IsSignedIn(),
		render:             &imageRender{},
		logger:             logger,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{TickCmd(spinnerInterval)}
	if m.hasInitiallyLoaded {
		cmds = append(cmds, LoadInitialPhotosCmd(m.Controller))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(spinnerInterval)

	case PhotosLoadedMsg:
		if msg.Err != nil {
			m.logger.Error("failed to load photos", "append", msg.Append, "error", msg.Err)
		}
		m.reproject()
		return m, m.loadCurrentImage()

	case LoadMoreSkippedMsg:
		return m, nil

	case UploadProgressMsg:
		m.upload.file = msg.Filename
		m.upload.percent = msg.Percent
		return m, msg.NextCmd

	case PhotoUploadedMsg:
		return m.handleUploaded(msg)

	case PhotoDeletedMsg:
		return m.handleDeleted(msg)

	case PhotoDownloadedMsg:
		return m.setStatus("Saved to "+msg.Path, false)

	case ImageLoadedMsg:
		if msg.Err != nil {
			m.logger.Warn("failed to load image", "id", msg.ID, "error", msg.Err)
			m.Viewer.ImageFailed(msg.ID, msg.Err)
			return m, nil
		}
		m.Viewer.ImageLoaded(msg.Image)
		return m, nil

	case SignedOutMsg:
		m.Viewer.Close()
		m.State = StateGallery
		m.hasInitiallyLoaded = false
		m.Grid.ClearFilter()
		m.reproject()
		if msg.Err != nil {
			return m.setStatus(domain.UserMessage(msg.Err), true)
		}
		return m.setStatus("Signed out", false)

	case ErrMsg:
		m.logger.Error(msg.Context, "error", msg.Err)
		return m.setStatus(msg.Context+": "+domain.UserMessage(msg.Err), true)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	return m, nil
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	delay := 3 * time.Second
	if isErr {
		delay = 5 * time.Second
	}
	return m, ClearStatusCmd(delay)
}

func (m Model) handleUploaded(msg PhotoUploadedMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if msg.Err != nil {
		m.logger.Error("upload failed", "file", msg.Filename, "error", msg.Err)
		m.StatusMsg = fmt.Sprintf("Upload failed: %s: %s", msg.Filename, domain.UserMessage(msg.Err))
		m.StatusIsErr = true
	} else {
		m.StatusMsg = "Uploaded " + msg.Photo.DisplayName()
		m.StatusIsErr = false
		m.reproject()
	}
	cmds = append(cmds, ClearStatusCmd(3*time.Second))

	if len(msg.Remaining) > 0 {
		m.upload = uploadState{active: true, file: msg.Remaining[0], queued: len(msg.Remaining) - 1}
		cmds = append(cmds, UploadCmd(m.Controller, msg.Remaining))
	} else {
		m.upload = uploadState{}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleDeleted(msg PhotoDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.logger.Error("delete failed", "id", msg.ID, "error", msg.Err)
		return m.setStatus("Delete failed: "+domain.UserMessage(msg.Err), true)
	}

	m.reprojectGrid()
	if m.Viewer.IsOpen() {
		m.Viewer.Deleted(msg.ID, m.Grid.Projection().Flat)
		if !m.Viewer.IsOpen() {
			m.State = StateGallery
		}
	}

	m.StatusMsg = "Deleted " + msg.Name
	m.StatusIsErr = false
	return m, tea.Batch(ClearStatusCmd(3*time.Second), m.loadCurrentImage())
}

// reprojectGrid derives the grouped projection from the store snapshot
func (m *Model) reprojectGrid() {
	st := m.Controller.Store().Snapshot()
	proj := m.projector.Project(st, m.Sort, m.Grouping, m.Grid.FilterQuery())
	m.Grid.SetProjection(proj)
	m.Grid.SetBreadcrumb(m.breadcrumb(st))
	m.Grid.SetFooter(m.listFooter(st))
	m.Grid.SetEmptyMessage(m.emptyMessage(st))
}

// reproject updates the grid and keeps an open viewer in step with it
func (m *Model) reproject() {
	m.reprojectGrid()
	if m.Viewer.IsOpen() {
		m.Viewer.SetPhotos(m.Grid.Projection().Flat)
		if !m.Viewer.IsOpen() {
			m.State = StateGallery
		}
	}
}

// loadCurrentImage fetches the viewer's photo unless it is already loaded
// or requested
func (m *Model) loadCurrentImage() tea.Cmd {
	p, ok := m.Viewer.Current()
	if !ok || m.Viewer.Status() != viewer.StatusLoading || m.requestedImage == p.ID {
		return nil
	}
	m.requestedImage = p.ID
	return FetchImageCmd(m.Controller, p.ID)
}

// maybeLoadMore requests the next page when the selection nears the end
func (m *Model) maybeLoadMore(nearEnd bool) tea.Cmd {
	if !nearEnd || !m.hasInitiallyLoaded || m.Grid.FilterQuery() != "" {
		return nil
	}
	st := m.Controller.Store().Snapshot()
	if !st.HasMore || st.Loading || st.LoadingMore {
		return nil
	}
	return LoadMorePhotosCmd(m.Controller)
}

func (m Model) breadcrumb(st gallery.State) string {
	crumb := "Photos"
	if user := m.Controller.Session().User(); user.Name != "" {
		crumb = user.Name + "'s photos"
	}
	if len(st.Photos) > 0 {
		crumb += fmt.Sprintf(" · %d of %d", len(st.Photos), st.TotalCount)
	}
	crumb += " · by " + m.Grouping.String()
	if m.Sort != nil {
		crumb += " · " + m.Sort.String()
	}
	return crumb
}

func (m Model) listFooter(st gallery.State) string {
	switch {
	case st.LoadingMore:
		return "Loading more photos..."
	case st.HasMore && len(st.Photos) > 0:
		return "m: load more photos"
	}
	return ""
}

func (m Model) emptyMessage(st gallery.State) string {
	if st.Error != "" {
		return st.Error
	}
	return "No photos yet. Press u to upload your first photo."
}
