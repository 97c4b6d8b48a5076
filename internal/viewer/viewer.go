// Package viewer implements the full-screen photo viewer: navigation over the
// gallery's flat photo order, per-photo load status and the zoom/rotate
// transform.
package viewer

import (
	"github.com/mmcdole/photure/internal/domain"
)

// Zoom bounds
const (
	MinZoom  = 0.25
	MaxZoom  = 3.0
	ZoomStep = 0.25
)

// Status is the load state of the displayed photo
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return "loading"
	}
}

// Viewer is owned by the UI goroutine and is not safe for concurrent use.
// It holds at most one decoded image and releases it whenever the displayed
// photo changes or the viewer closes.
type Viewer struct {
	photos []domain.Photo
	index  int
	open   bool

	status Status
	err    error
	image  *Image

	zoom     float64
	rotation int
	showInfo bool
}

// New creates a closed viewer
func New() *Viewer {
	return &Viewer{zoom: 1}
}

// Open shows photos[index]. photos is the flat display order. Opening an
// empty list or an out-of-range index leaves the viewer closed.
func (v *Viewer) Open(photos []domain.Photo, index int) bool {
	if index < 0 || index >= len(photos) {
		return false
	}
	v.photos = append([]domain.Photo(nil), photos...)
	v.open = true
	v.show(index)
	return true
}

// Close hides the viewer and releases the displayed image
func (v *Viewer) Close() {
	v.releaseImage()
	v.open = false
	v.photos = nil
	v.index = 0
	v.status = StatusLoading
	v.err = nil
	v.resetTransform()
}

func (v *Viewer) IsOpen() bool { return v.open }

// Current returns the displayed photo
func (v *Viewer) Current() (domain.Photo, bool) {
	if !v.open {
		return domain.Photo{}, false
	}
	return v.photos[v.index], true
}

func (v *Viewer) Index() int { return v.index }
func (v *Viewer) Len() int   { return len(v.photos) }

func (v *Viewer) HasNext() bool     { return v.open && v.index < len(v.photos)-1 }
func (v *Viewer) HasPrevious() bool { return v.open && v.index > 0 }

// Next moves to the following photo. It reports false at the end.
func (v *Viewer) Next() bool {
	if !v.HasNext() {
		return false
	}
	v.show(v.index + 1)
	return true
}

// Previous moves to the preceding photo. It reports false at the start.
func (v *Viewer) Previous() bool {
	if !v.HasPrevious() {
		return false
	}
	v.show(v.index - 1)
	return true
}

func (v *Viewer) Status() Status { return v.status }
func (v *Viewer) Err() error     { return v.err }

// Image returns the decoded image, or nil while loading or after a failure
func (v *Viewer) Image() *Image {
	if v.status != StatusLoaded {
		return nil
	}
	return v.image
}

// ImageLoaded installs img if it belongs to the displayed photo. Images that
// arrive for any other photo are released and false is returned.
func (v *Viewer) ImageLoaded(img *Image) bool {
	if img == nil {
		return false
	}
	cur, ok := v.Current()
	if !ok || cur.ID != img.ID {
		img.Release()
		return false
	}
	if v.image != img {
		v.releaseImage()
	}
	v.image = img
	v.status = StatusLoaded
	v.err = nil
	return true
}

// ImageFailed records a load failure for the displayed photo. Failures for
// other photos are ignored.
func (v *Viewer) ImageFailed(id string, err error) bool {
	cur, ok := v.Current()
	if !ok || cur.ID != id {
		return false
	}
	v.releaseImage()
	v.status = StatusErrored
	v.err = err
	return true
}

// Retry puts an errored photo back into loading
func (v *Viewer) Retry() bool {
	if !v.open || v.status != StatusErrored {
		return false
	}
	v.status = StatusLoading
	v.err = nil
	return true
}

func (v *Viewer) Zoom() float64 { return v.zoom }
func (v *Viewer) Rotation() int { return v.rotation }

// ZoomIn raises the zoom by one step, up to MaxZoom
func (v *Viewer) ZoomIn() {
	v.zoom = min(v.zoom+ZoomStep, MaxZoom)
}

// ZoomOut lowers the zoom by one step, down to MinZoom
func (v *Viewer) ZoomOut() {
	v.zoom = max(v.zoom-ZoomStep, MinZoom)
}

// Rotate turns the photo 90 degrees clockwise
func (v *Viewer) Rotate() {
	v.rotation = (v.rotation + 90) % 360
}

// Reset restores zoom 1.0 and no rotation
func (v *Viewer) Reset() {
	v.resetTransform()
}

func (v *Viewer) ShowInfo() bool { return v.showInfo }

// ToggleInfo shows or hides the metadata panel. The setting survives
// navigation.
func (v *Viewer) ToggleInfo() {
	v.showInfo = !v.showInfo
}

// SetPhotos replaces the flat order, e.g. after another page loaded or the
// sort changed, keeping the displayed photo. If the displayed photo is no
// longer present it is treated as deleted.
func (v *Viewer) SetPhotos(photos []domain.Photo) {
	if !v.open {
		return
	}
	cur := v.photos[v.index]
	for i, p := range photos {
		if p.ID == cur.ID {
			v.photos = append([]domain.Photo(nil), photos...)
			v.index = i
			return
		}
	}
	v.Deleted(cur.ID, photos)
}

// Deleted reacts to photo id being removed. remaining is the flat order
// without it. Deleting the displayed photo moves to the photo that followed
// it, to the previous one if it was last, and closes the viewer if it was
// the only photo.
func (v *Viewer) Deleted(id string, remaining []domain.Photo) {
	if !v.open {
		return
	}

	cur := v.photos[v.index]
	if cur.ID != id {
		for i, p := range remaining {
			if p.ID == cur.ID {
				v.photos = append([]domain.Photo(nil), remaining...)
				v.index = i
				return
			}
		}
	}

	if len(remaining) == 0 {
		v.Close()
		return
	}

	next := v.index
	if next >= len(remaining) {
		next = len(remaining) - 1
	}
	v.photos = append([]domain.Photo(nil), remaining...)
	v.show(next)
}

func (v *Viewer) show(index int) {
	v.releaseImage()
	v.index = index
	v.status = StatusLoading
	v.err = nil
	v.resetTransform()
}

func (v *Viewer) resetTransform() {
	v.zoom = 1
	v.rotation = 0
}

func (v *Viewer) releaseImage() {
	if v.image != nil {
		v.image.Release()
		v.image = nil
	}
}
