package viewer

import (
	"bytes"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

// Image is a decoded photo held by the viewer. It must be released once it
// is no longer displayed.
type Image struct {
	ID     string
	Format string // "jpeg", "png", ...
	Width  int
	Height int
	Meta   Metadata

	img      image.Image
	released atomic.Bool
}

// Decode decodes photo bytes, applying EXIF orientation
func Decode(id string, data []byte) (*Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	format := ""
	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		format = name
	}

	b := img.Bounds()
	return &Image{
		ID:     id,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Meta:   ReadMetadata(data),
		img:    img,
	}, nil
}

// Pixels returns the decoded image, or nil once released
func (i *Image) Pixels() image.Image {
	if i == nil || i.released.Load() {
		return nil
	}
	return i.img
}

// Release drops the decoded pixels. It is safe to call more than once.
func (i *Image) Release() {
	if i == nil {
		return
	}
	if i.released.CompareAndSwap(false, true) {
		i.img = nil
	}
}

// Released reports whether Release has been called
func (i *Image) Released() bool {
	return i != nil && i.released.Load()
}
