package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/photure/internal/domain"
	"github.com/mmcdole/photure/internal/gallery"
	"github.com/mmcdole/photure/internal/viewer"
)

// Command factories for async operations

// LoadInitialPhotosCmd loads the first page of photos
func LoadInitialPhotosCmd(ctrl *gallery.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := ctrl.LoadInitialPhotos(ctx)
		return PhotosLoadedMsg{Err: err}
	}
}

// LoadMorePhotosCmd loads the next page of photos if one is due
func LoadMorePhotosCmd(ctrl *gallery.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		issued, err := ctrl.LoadMorePhotos(ctx)
		if !issued {
			return LoadMoreSkippedMsg{}
		}
		return PhotosLoadedMsg{Append: true, Err: err}
	}
}

// RefreshCmd reloads the list from the first page
func RefreshCmd(ctrl *gallery.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := ctrl.Refresh(ctx)
		return PhotosLoadedMsg{Err: err}
	}
}

// UploadCmd uploads the first of paths with streaming progress, using a
// continuation to pump progress messages to the UI. The remaining paths
// are returned in the result so the UI can queue the next upload.
func UploadCmd(ctrl *gallery.Controller, paths []string) tea.Cmd {
	if len(paths) == 0 {
		return nil
	}
	path, rest := paths[0], paths[1:]

	return func() tea.Msg {
		progressCh := make(chan UploadProgress, 16)
		resultCh := make(chan PhotoUploadedMsg, 1)

		go func() {
			defer close(progressCh)
			observer := NewChannelObserver(filepath.Base(path), progressCh)
			resultCh <- uploadFile(ctrl, path, rest, observer.OnProgress)
		}()

		return readUploadProgress(progressCh, resultCh)
	}
}

// readUploadProgress reads one progress report, or the final result once
// the progress channel is closed
func readUploadProgress(progressCh <-chan UploadProgress, resultCh <-chan PhotoUploadedMsg) tea.Msg {
	progress, ok := <-progressCh
	if !ok {
		return <-resultCh
	}
	return UploadProgressMsg{
		Filename: progress.Filename,
		Percent:  progress.Percent,
		NextCmd: func() tea.Msg {
			return readUploadProgress(progressCh, resultCh)
		},
	}
}

func uploadFile(ctrl *gallery.Controller, path string, rest []string, onProgress domain.ProgressFunc) PhotoUploadedMsg {
	name := filepath.Base(path)
	result := PhotoUploadedMsg{Filename: name, Remaining: rest}

	f, err := os.Open(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to open %s: %w", name, err)
		return result
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		result.Err = fmt.Errorf("failed to stat %s: %w", name, err)
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result.Photo, result.Err = ctrl.UploadPhoto(ctx, domain.Upload{
		Filename: name,
		Size:     info.Size(),
		Content:  f,
	}, onProgress)
	return result
}

// DeletePhotoCmd deletes a photo
func DeletePhotoCmd(ctrl *gallery.Controller, photo domain.Photo) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := ctrl.DeletePhoto(ctx, photo.ID)
		return PhotoDeletedMsg{ID: photo.ID, Name: photo.DisplayName(), Err: err}
	}
}

// DownloadPhotoCmd saves a photo into the download directory
func DownloadPhotoCmd(ctrl *gallery.Controller, photo domain.Photo) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		path, err := ctrl.DownloadPhoto(ctx, photo.ID, photo.OriginalName)
		if err != nil {
			return ErrMsg{Err: err, Context: "Download failed"}
		}
		return PhotoDownloadedMsg{Path: path}
	}
}

// FetchImageCmd fetches and decodes a photo for the viewer
func FetchImageCmd(ctrl *gallery.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		data, err := ctrl.FetchImage(ctx, id)
		if err != nil {
			return ImageLoadedMsg{ID: id, Err: err}
		}
		img, err := viewer.Decode(id, data)
		if err != nil {
			return ImageLoadedMsg{ID: id, Err: err}
		}
		return ImageLoadedMsg{ID: id, Image: img}
	}
}

// SignOutCmd clears local state and ends the session
func SignOutCmd(ctrl *gallery.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return SignedOutMsg{Err: ctrl.SignOut(ctx)}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears the status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
