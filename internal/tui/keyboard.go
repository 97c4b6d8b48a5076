package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/photure/internal/viewer"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		m.State = m.returnState
		return m, nil

	case StateConfirmDelete:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = m.returnState
			if m.pendingDelete == nil {
				return m, nil
			}
			photo := *m.pendingDelete
			m.pendingDelete = nil
			m.StatusMsg = "Deleting " + photo.DisplayName() + "..."
			m.StatusIsErr = false
			return m, DeletePhotoCmd(m.Controller, photo)
		case key.Matches(msg, Keys.Deny):
			m.State = m.returnState
			m.pendingDelete = nil
		}
		return m, nil

	case StateConfirmLogout:
		switch {
		case key.Matches(msg, Keys.Confirm):
			m.State = StateGallery
			return m, SignOutCmd(m.Controller)
		case key.Matches(msg, Keys.Deny):
			m.State = m.returnState
		}
		return m, nil

	case StateViewer:
		return m.handleViewerKey(msg)
	}

	// Route to active modal if any
	if handled, newModel, cmd := m.routeToModal(msg); handled {
		return newModel, cmd
	}

	// Typing into the filter: everything goes to the grid
	if m.Grid.IsFilterTyping() {
		return m.updateGrid(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.returnState = StateGallery
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Logout):
		if !m.Controller.Session().IsSignedIn() {
			return m, nil
		}
		m.returnState = StateGallery
		m.State = StateConfirmLogout
		return m, nil
	}

	// Everything below needs a signed-in user
	if !m.Controller.Session().IsSignedIn() {
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Escape):
		if m.Grid.IsFiltering() {
			return m.updateGrid(msg)
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		if m.Grid.IsFiltering() {
			return m.updateGrid(msg)
		}
		m.Grid.ToggleFilter()
		return m, nil

	case key.Matches(msg, Keys.Sort):
		m.SortModal.Show(m.Sort)
		return m, nil

	case key.Matches(msg, Keys.GroupBy):
		m.Grouping = m.Grouping.Next()
		m.reproject()
		m.StatusMsg = "Grouped by " + m.Grouping.String()
		m.StatusIsErr = false
		return m, ClearStatusCmd(2 * time.Second)

	case key.Matches(msg, Keys.Refresh):
		m.hasInitiallyLoaded = true
		return m, RefreshCmd(m.Controller)

	case key.Matches(msg, Keys.LoadMore):
		return m, LoadMorePhotosCmd(m.Controller)

	case key.Matches(msg, Keys.Upload):
		if m.upload.active {
			m.StatusMsg = "An upload is already in progress"
			m.StatusIsErr = true
			return m, ClearStatusCmd(3 * time.Second)
		}
		m.UploadModal.Show("Upload photos", "tab complete · enter upload · esc cancel", "")
		return m, nil

	case key.Matches(msg, Keys.Enter):
		return m.openViewer()

	case key.Matches(msg, Keys.Delete):
		if photo, ok := m.Grid.Selected(); ok {
			m.pendingDelete = &photo
			m.returnState = StateGallery
			m.State = StateConfirmDelete
		}
		return m, nil

	case key.Matches(msg, Keys.Download):
		if photo, ok := m.Grid.Selected(); ok {
			m.StatusMsg = "Downloading " + photo.DisplayName() + "..."
			m.StatusIsErr = false
			return m, DownloadPhotoCmd(m.Controller, photo)
		}
		return m, nil
	}

	// Navigation goes to the grid
	return m.updateGrid(msg)
}

// updateGrid forwards input to the grid, reprojecting when the filter
// changed and loading the next page when the cursor nears the end
func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.Grid.FilterQuery()

	var cmd tea.Cmd
	m.Grid, cmd = m.Grid.Update(msg)

	if m.Grid.FilterQuery() != before {
		m.reproject()
	}

	return m, tea.Batch(cmd, m.maybeLoadMore(m.Grid.NearEnd()))
}

// openViewer opens the full-screen viewer on the selected photo
func (m Model) openViewer() (tea.Model, tea.Cmd) {
	if !m.Viewer.Open(m.Grid.Projection().Flat, m.Grid.Cursor()) {
		return m, nil
	}
	m.State = StateViewer
	m.requestedImage = ""
	return m, m.loadCurrentImage()
}

// closeViewer returns to the grid with the viewed photo selected
func (m Model) closeViewer() (tea.Model, tea.Cmd) {
	m.Grid.SetCursor(m.Viewer.Index())
	m.Viewer.Close()
	m.requestedImage = ""
	m.State = StateGallery
	return m, nil
}

// handleViewerKey handles input while the viewer is open
func (m Model) handleViewerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Escape, Keys.Quit):
		return m.closeViewer()

	case key.Matches(msg, Keys.Help):
		m.returnState = StateViewer
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Next):
		m.Viewer.Next()
		nearEnd := m.Viewer.Len()-m.Viewer.Index() <= 2
		return m, tea.Batch(m.loadCurrentImage(), m.maybeLoadMore(nearEnd))

	case key.Matches(msg, Keys.Previous):
		m.Viewer.Previous()
		return m, m.loadCurrentImage()

	case key.Matches(msg, Keys.ZoomIn):
		m.Viewer.ZoomIn()
		return m, nil

	case key.Matches(msg, Keys.ZoomOut):
		m.Viewer.ZoomOut()
		return m, nil

	case key.Matches(msg, Keys.Rotate):
		m.Viewer.Rotate()
		return m, nil

	case key.Matches(msg, Keys.Reset):
		m.Viewer.Reset()
		return m, nil

	case key.Matches(msg, Keys.Info):
		m.Viewer.ToggleInfo()
		m.updateLayout()
		return m, nil

	case key.Matches(msg, Keys.Retry):
		if m.Viewer.Status() == viewer.StatusErrored && m.Viewer.Retry() {
			m.requestedImage = ""
			return m, m.loadCurrentImage()
		}
		return m, nil

	case key.Matches(msg, Keys.Delete):
		if photo, ok := m.Viewer.Current(); ok {
			m.pendingDelete = &photo
			m.returnState = StateViewer
			m.State = StateConfirmDelete
		}
		return m, nil

	case key.Matches(msg, Keys.Download):
		if photo, ok := m.Viewer.Current(); ok {
			m.StatusMsg = "Downloading " + photo.DisplayName() + "..."
			m.StatusIsErr = false
			return m, DownloadPhotoCmd(m.Controller, photo)
		}
		return m, nil
	}

	return m, nil
}

// routeToModal routes key input to active modals
// Returns (handled, model, cmd) where handled is true if a modal consumed the input
func (m Model) routeToModal(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	// Handle sort modal if visible
	if m.SortModal.IsVisible() {
		// The modal swallows keys it doesn't handle
		if _, selection := m.SortModal.HandleKey(msg.String()); selection != nil {
			m.Sort = selection.Spec
			m.reproject()
		}
		return true, m, nil
	}

	// Handle upload prompt if visible
	if m.UploadModal.IsVisible() {
		var cmd tea.Cmd
		var submitted bool
		m.UploadModal, cmd, submitted = m.UploadModal.Update(msg)
		if !submitted {
			return true, m, cmd
		}

		paths, err := ExpandUploadPaths(m.UploadModal.Value())
		m.UploadModal.Hide()
		if err != nil {
			m.StatusMsg = err.Error()
			m.StatusIsErr = true
			return true, m, ClearStatusCmd(3 * time.Second)
		}

		m.upload = uploadState{active: true, file: paths[0], queued: len(paths) - 1}
		return true, m, UploadCmd(m.Controller, paths)
	}

	return false, m, nil
}
