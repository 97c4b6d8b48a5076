package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/viewer"
)

// Message types for the TUI

// ErrMsg represents an error from an action the user started
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// PhotosLoadedMsg signals that a page load finished. Load errors are
// already recorded in the store; Err is carried for logging.
type PhotosLoadedMsg struct {
	Append bool
	Err    error
}

// LoadMoreSkippedMsg signals that a load-more request was a no-op
type LoadMoreSkippedMsg struct{}

// UploadProgressMsg is sent for each progress update of an upload. NextCmd
// continues reading the progress channel.
type UploadProgressMsg struct {
	Filename string
	Percent  int
	NextCmd  tea.Cmd
}

// PhotoUploadedMsg signals that one file finished uploading
type PhotoUploadedMsg struct {
	Photo     domain.Photo
	Filename  string
	Remaining []string // Files still queued
	Err       error
}

// PhotoDeletedMsg signals that a delete finished
type PhotoDeletedMsg struct {
	ID   string
	Name string
	Err  error
}

// PhotoDownloadedMsg signals that a photo was saved locally
type PhotoDownloadedMsg struct {
	Path string
}

// ImageLoadedMsg carries a decoded image for the viewer
type ImageLoadedMsg struct {
	ID    string
	Image *viewer.Image
	Err   error
}

// SignedOutMsg signals that sign out completed
type SignedOutMsg struct {
	Err error
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
