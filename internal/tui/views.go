package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/tui/styles"
	"github.com/mmcdole/photure/internal/viewer"
)

const (
	// Viewer layout: header line above the image
	ViewerHeaderHeight = 1

	// Width of the metadata panel beside the image
	InfoPanelWidth = 36

	dateLayout     = "Jan 2, 2006"
	dateTimeLayout = "Jan 2, 2006 3:04 PM"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	// Handle modal states
	switch m.State {
	case StateHelp:
		return m.renderHelp()
	case StateConfirmDelete:
		return m.renderDeleteConfirmation()
	case StateConfirmLogout:
		return m.renderLogoutConfirmation()
	}

	var content string
	if m.State == StateViewer {
		content = m.renderViewer()
	} else {
		content = m.renderGallery()
	}

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		m.renderFooter(),
	)

	// Overlay sort modal if visible
	if m.SortModal.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.SortModal.View())
	}

	// Overlay upload prompt if visible
	if m.UploadModal.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.UploadModal.View())
	}

	return view
}

// renderGallery renders the welcome screen, the first-load spinner or the grid
func (m Model) renderGallery() string {
	contentHeight := max(0, m.Height-ChromeHeight)

	if !m.Controller.Session().IsSignedIn() {
		return lipgloss.Place(m.Width, contentHeight,
			lipgloss.Center, lipgloss.Center,
			m.renderWelcome())
	}

	st := m.Controller.Store().Snapshot()
	if st.Loading && len(st.Photos) == 0 {
		return lipgloss.Place(m.Width, contentHeight,
			lipgloss.Center, lipgloss.Center,
			RenderSpinner(m.SpinnerFrame)+" "+styles.DimStyle.Render("Loading photos..."))
	}

	if st.Error != "" && len(st.Photos) > 0 {
		banner := m.renderErrorBanner(st.Error)
		grid := m.Grid
		grid.SetSize(m.Width, max(0, contentHeight-lipgloss.Height(banner)))
		return lipgloss.JoinVertical(lipgloss.Left, banner, grid.View())
	}

	return m.Grid.View()
}

func (m Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Welcome to Photure"))
	b.WriteString("\n\n")
	b.WriteString(styles.SubtitleStyle.Render("Sign in to start uploading and managing your photos."))
	b.WriteString("\n\n")
	b.WriteString(styles.DimStyle.Render("Run "))
	b.WriteString(styles.AccentStyle.Render("photure login"))
	b.WriteString(styles.DimStyle.Render(" to sign in."))
	return lipgloss.NewStyle().Align(lipgloss.Center).Render(b.String())
}

func (m Model) renderErrorBanner(msg string) string {
	hint := styles.DimStyle.Render("  (r to retry)")
	return styles.ErrorStyle.Render(styles.Truncate(msg, m.Width-lipgloss.Width(hint))) + hint
}

// renderViewer renders the full-screen photo viewer
func (m Model) renderViewer() string {
	photo, ok := m.Viewer.Current()
	if !ok {
		return ""
	}

	bodyHeight := max(0, m.Height-ChromeHeight-ViewerHeaderHeight)
	imageWidth := m.Width
	var info string
	if m.Viewer.ShowInfo() && m.Width > InfoPanelWidth*2 {
		imageWidth = m.Width - InfoPanelWidth
		info = m.renderInfoPanel(photo, bodyHeight)
	}

	body := m.renderImage(imageWidth, bodyHeight)
	if info != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, info)
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderViewerHeader(photo), body)
}

// renderViewerHeader renders "name  i of N • date • size" plus any transform
func (m Model) renderViewerHeader(photo domain.Photo) string {
	parts := []string{
		fmt.Sprintf("%d of %d", m.Viewer.Index()+1, m.Viewer.Len()),
		photo.UploadedAt().Local().Format(dateLayout),
		photo.FormattedSize(),
	}
	if z := m.Viewer.Zoom(); z != 1 {
		parts = append(parts, fmt.Sprintf("%.0f%%", z*100))
	}
	if r := m.Viewer.Rotation(); r != 0 {
		parts = append(parts, fmt.Sprintf("%d°", r))
	}

	meta := styles.DimStyle.Render("  " + strings.Join(parts, " • "))
	name := styles.ViewerHeaderStyle.Render(
		styles.Truncate(photo.DisplayName(), max(8, m.Width-lipgloss.Width(meta))))
	return name + meta
}

// renderImage renders the current image, its loading state or its error
func (m Model) renderImage(width, height int) string {
	switch m.Viewer.Status() {
	case viewer.StatusLoading:
		return lipgloss.Place(width, height,
			lipgloss.Center, lipgloss.Center,
			RenderSpinner(m.SpinnerFrame)+" "+styles.DimStyle.Render("Loading photo..."))

	case viewer.StatusErrored:
		msg := styles.ErrorStyle.Render("Failed to load image: "+domain.UserMessage(m.Viewer.Err())) +
			"\n\n" + styles.AccentStyle.Render("r") + styles.DimStyle.Render(" retry")
		return lipgloss.Place(width, height,
			lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Align(lipgloss.Center).Render(msg))
	}

	img := m.Viewer.Image()
	zoom, rotation := m.Viewer.Zoom(), m.Viewer.Rotation()
	key := fmt.Sprintf("%p|%.2f|%d|%dx%d", img, zoom, rotation, width, height)
	if m.render.key != key {
		m.render.key = key
		m.render.out = viewer.Render(img, zoom, rotation, width, height)
	}
	return m.render.out
}

// renderInfoPanel renders photo and EXIF details beside the image
func (m Model) renderInfoPanel(photo domain.Photo, height int) string {
	frameW := styles.InfoPanelStyle.GetHorizontalFrameSize()
	valueWidth := InfoPanelWidth - frameW - styles.InfoLabelStyle.GetWidth()

	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.InfoLabelStyle.Render(label))
		b.WriteString(styles.Truncate(value, valueWidth))
		b.WriteString("\n")
	}

	b.WriteString(styles.TitleStyle.Render(styles.Truncate(photo.DisplayName(), InfoPanelWidth-frameW)))
	b.WriteString("\n\n")
	row("Size", photo.FormattedSize())
	row("Type", photo.ContentType)
	row("Uploaded", photo.UploadedAt().Local().Format(dateTimeLayout))

	if img := m.Viewer.Image(); img != nil {
		row("Format", strings.ToUpper(img.Format))
		row("Pixels", fmt.Sprintf("%d × %d", img.Width, img.Height))

		meta := img.Meta
		if !meta.DateTaken.IsZero() {
			row("Taken", meta.DateTaken.Format(dateTimeLayout))
		}
		row("Camera", meta.Camera())
		row("Lens", meta.LensModel)
		row("Exposure", meta.Exposure())
		if meta.HasLocation {
			row("Location", fmt.Sprintf("%.5f, %.5f", meta.Latitude, meta.Longitude))
		}
	}

	return styles.InfoPanelStyle.
		Width(InfoPanelWidth - styles.InfoPanelStyle.GetHorizontalBorderSize()).
		Height(max(0, height-styles.InfoPanelStyle.GetVerticalBorderSize())).
		Render(strings.TrimRight(b.String(), "\n"))
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	st := m.Controller.Store().Snapshot()

	// Left side: spinner + status when busy or status message active
	var left string
	switch {
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	case st.Loading && len(st.Photos) > 0:
		left = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Refreshing...")
	case st.LoadingMore:
		left = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Loading more photos...")
	}

	// Center section: upload progress
	var center string
	if m.upload.active {
		label := "Uploading " + styles.Truncate(filepath.Base(m.upload.file), 24)
		if m.upload.queued > 0 {
			label += fmt.Sprintf(" (+%d)", m.upload.queued)
		}
		center = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render(label+" ") +
			styles.RenderProgressBar(m.upload.percent, 20) +
			styles.DimStyle.Render(fmt.Sprintf(" %3d%%", m.upload.percent))
	}

	// Right side: "? help" hint
	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	// Layout: left + centered progress + right
	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	totalContent := leftWidth + centerWidth + rightWidth
	if totalContent >= m.Width {
		// Not enough space - drop the status in favour of progress
		if center != "" {
			left = center
			leftWidth = centerWidth
		}
		gap := max(0, m.Width-leftWidth-rightWidth)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
GALLERY                         VIEWER
  h/j/k/l    Move                  h/l     Previous/next
  g/Home     First photo           +/=     Zoom in
  G/End      Last photo            -       Zoom out
  Ctrl+u/d   Scroll half page      o       Rotate 90°
  Enter      View photo            0       Reset zoom/rotation
  m          Load more             i       Toggle info
                                   r       Retry failed load
PHOTOS                             Esc     Back to gallery
  u          Upload file/folder
  d          Download            OTHER
  x          Delete                /       Filter by name
  r          Refresh               s       Sort
                                   c       Group by date/month/year
                                   L       Log out
                                   q       Quit

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// renderDeleteConfirmation renders the delete confirmation modal
func (m Model) renderDeleteConfirmation() string {
	name := ""
	if m.pendingDelete != nil {
		name = styles.Truncate(m.pendingDelete.DisplayName(), 36)
	}

	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Delete Photo?"))
	b.WriteString("\n")
	b.WriteString(styles.AccentStyle.Render(name))
	b.WriteString("\n\n")
	b.WriteString(styles.DimStyle.Render("This cannot be undone."))
	b.WriteString("\n\n")
	b.WriteString("[Y] Yes      [N] No")

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(lipgloss.NewStyle().Align(lipgloss.Center).Render(b.String())))
}

// renderLogoutConfirmation renders the logout confirmation modal
func (m Model) renderLogoutConfirmation() string {
	modal := `
              Log Out?

  This will clear your credentials
  and all cached photos.

        [Y] Yes      [N] No
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(modal))
}

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}
