package viewer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/mmcdole/photure/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func photos(ids ...string) []domain.Photo {
	out := make([]domain.Photo, len(ids))
	for i, id := range ids {
		out[i] = domain.Photo{ID: id, OriginalName: id + ".png"}
	}
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decoded(t *testing.T, id string) *Image {
	t.Helper()
	img, err := Decode(id, pngBytes(t, 8, 4))
	require.NoError(t, err)
	return img
}

func currentID(v *Viewer) string {
	p, _ := v.Current()
	return p.ID
}

func TestViewer_Open(t *testing.T) {
	t.Run("opens on the given index loading", func(t *testing.T) {
		v := New()

		require.True(t, v.Open(photos("a", "b", "c"), 1))

		assert.True(t, v.IsOpen())
		assert.Equal(t, "b", currentID(v))
		assert.Equal(t, StatusLoading, v.Status())
		assert.Equal(t, 1.0, v.Zoom())
		assert.Equal(t, 0, v.Rotation())
	})

	t.Run("rejects empty lists and bad indexes", func(t *testing.T) {
		v := New()

		assert.False(t, v.Open(nil, 0))
		assert.False(t, v.Open(photos("a"), 1))
		assert.False(t, v.Open(photos("a"), -1))
		assert.False(t, v.IsOpen())
		_, ok := v.Current()
		assert.False(t, ok)
	})
}

func TestViewer_Navigation(t *testing.T) {
	v := New()
	v.Open(photos("a", "b", "c"), 0)

	assert.False(t, v.HasPrevious())
	assert.False(t, v.Previous(), "disabled at the start")
	assert.Equal(t, "a", currentID(v))

	assert.True(t, v.Next())
	assert.True(t, v.Next())
	assert.Equal(t, "c", currentID(v))
	assert.False(t, v.HasNext())
	assert.False(t, v.Next(), "disabled at the end")
	assert.Equal(t, 2, v.Index())

	assert.True(t, v.Previous())
	assert.Equal(t, "b", currentID(v))
}

func TestViewer_Zoom(t *testing.T) {
	t.Run("zoom in steps by a quarter and clamps at 3", func(t *testing.T) {
		v := New()
		v.Open(photos("a"), 0)

		for range 4 {
			v.ZoomIn()
		}
		assert.Equal(t, 2.0, v.Zoom())

		for range 4 {
			v.ZoomIn()
		}
		assert.Equal(t, 3.0, v.Zoom())

		v.ZoomIn()
		assert.Equal(t, 3.0, v.Zoom())
	})

	t.Run("zoom out clamps at a quarter", func(t *testing.T) {
		v := New()
		v.Open(photos("a"), 0)

		for range 10 {
			v.ZoomOut()
		}
		assert.Equal(t, MinZoom, v.Zoom())
	})

	t.Run("navigation resets zoom and rotation", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b"), 0)
		v.ZoomIn()
		v.Rotate()

		v.Next()

		assert.Equal(t, 1.0, v.Zoom())
		assert.Equal(t, 0, v.Rotation())
	})
}

func TestViewer_Rotate(t *testing.T) {
	v := New()
	v.Open(photos("a"), 0)

	got := []int{}
	for range 5 {
		v.Rotate()
		got = append(got, v.Rotation())
	}
	assert.Equal(t, []int{90, 180, 270, 0, 90}, got)

	v.ZoomIn()
	v.Reset()
	assert.Equal(t, 0, v.Rotation())
	assert.Equal(t, 1.0, v.Zoom())
}

func TestViewer_Images(t *testing.T) {
	t.Run("installs the current photo's image", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b"), 0)
		img := decoded(t, "a")

		assert.True(t, v.ImageLoaded(img))

		assert.Equal(t, StatusLoaded, v.Status())
		assert.Same(t, img, v.Image())
	})

	t.Run("releases stale images", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b"), 0)
		v.Next()
		stale := decoded(t, "a")

		assert.False(t, v.ImageLoaded(stale))

		assert.True(t, stale.Released())
		assert.Equal(t, StatusLoading, v.Status())
		assert.Nil(t, v.Image())
	})

	t.Run("releases on photo change and close", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b"), 0)
		first := decoded(t, "a")
		v.ImageLoaded(first)

		v.Next()
		assert.True(t, first.Released())
		assert.Nil(t, first.Pixels())

		second := decoded(t, "b")
		v.ImageLoaded(second)
		v.Close()
		assert.True(t, second.Released())
	})

	t.Run("images arriving after close are released", func(t *testing.T) {
		v := New()
		v.Open(photos("a"), 0)
		v.Close()
		img := decoded(t, "a")

		assert.False(t, v.ImageLoaded(img))
		assert.True(t, img.Released())
	})

	t.Run("failure and retry", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b"), 0)
		boom := errors.New("boom")

		assert.False(t, v.ImageFailed("b", boom), "other photos are ignored")
		assert.True(t, v.ImageFailed("a", boom))
		assert.Equal(t, StatusErrored, v.Status())
		assert.ErrorIs(t, v.Err(), boom)
		assert.Nil(t, v.Image())

		assert.True(t, v.Retry())
		assert.Equal(t, StatusLoading, v.Status())
		assert.NoError(t, v.Err())
		assert.False(t, v.Retry())
	})
}

func TestViewer_Deleted(t *testing.T) {
	t.Run("deleting the last remaining photo closes the viewer", func(t *testing.T) {
		v := New()
		v.Open(photos("only"), 0)
		img := decoded(t, "only")
		v.ImageLoaded(img)

		v.Deleted("only", nil)

		assert.False(t, v.IsOpen())
		assert.True(t, img.Released())
	})

	t.Run("shows the following photo", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b", "c"), 1)

		v.Deleted("b", photos("a", "c"))

		assert.Equal(t, "c", currentID(v))
		assert.Equal(t, StatusLoading, v.Status())
	})

	t.Run("moves back from the last photo", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b", "c"), 2)

		v.Deleted("c", photos("a", "b"))

		assert.Equal(t, "b", currentID(v))
		assert.False(t, v.HasNext())
	})

	t.Run("deleting another photo keeps the current one", func(t *testing.T) {
		v := New()
		v.Open(photos("a", "b", "c"), 2)
		img := decoded(t, "c")
		v.ImageLoaded(img)

		v.Deleted("a", photos("b", "c"))

		assert.Equal(t, "c", currentID(v))
		assert.Equal(t, 1, v.Index())
		assert.False(t, img.Released())
		assert.Equal(t, StatusLoaded, v.Status())
	})
}

func TestViewer_SetPhotos(t *testing.T) {
	v := New()
	v.Open(photos("a", "b"), 1)
	v.ZoomIn()

	v.SetPhotos(photos("z", "a", "b", "c"))

	assert.Equal(t, "b", currentID(v))
	assert.Equal(t, 2, v.Index())
	assert.Equal(t, 4, v.Len())
	assert.Equal(t, 1.25, v.Zoom(), "same photo keeps its transform")

	v.SetPhotos(photos("z", "a"))
	assert.Equal(t, "a", currentID(v))
}

func TestViewer_InfoToggleSurvivesNavigation(t *testing.T) {
	v := New()
	v.Open(photos("a", "b"), 0)

	v.ToggleInfo()
	v.Next()

	assert.True(t, v.ShowInfo())
}

func TestDecode(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		img, err := Decode("a", pngBytes(t, 6, 3))

		require.NoError(t, err)
		assert.Equal(t, "png", img.Format)
		assert.Equal(t, 6, img.Width)
		assert.Equal(t, 3, img.Height)
		assert.Equal(t, Metadata{}, img.Meta)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode("a", []byte("not an image"))
		assert.Error(t, err)
	})

	t.Run("release is idempotent", func(t *testing.T) {
		img := decoded(t, "a")
		img.Release()
		img.Release()
		assert.True(t, img.Released())

		var none *Image
		none.Release()
		assert.False(t, none.Released())
	})
}

func TestMetadata(t *testing.T) {
	m := Metadata{
		CameraMake:   "Canon",
		CameraModel:  "Canon EOS R5",
		FocalLength:  "50.0mm",
		Aperture:     "f/1.8",
		ShutterSpeed: "1/250s",
		ISO:          400,
	}

	assert.Equal(t, "Canon EOS R5", m.Camera())
	assert.Equal(t, "50.0mm  f/1.8  1/250s  ISO 400", m.Exposure())

	m.CameraModel = "X100V"
	assert.Equal(t, "Canon X100V", m.Camera())
	assert.Equal(t, "", Metadata{}.Exposure())
}

func TestRender(t *testing.T) {
	img := decoded(t, "a") // 8x4

	t.Run("fits and centres the image", func(t *testing.T) {
		out := Render(img, 1, 0, 16, 4)

		lines := strings.Split(out, "\n")
		assert.Len(t, lines, 4)
		assert.Equal(t, 4*16, strings.Count(out, halfBlock))
	})

	t.Run("rotation swaps the aspect", func(t *testing.T) {
		rotated := Transform(img.Pixels(), 1, 90)
		assert.Equal(t, 4, rotated.Bounds().Dx())
		assert.Equal(t, 8, rotated.Bounds().Dy())
	})

	t.Run("zoom crops or shrinks", func(t *testing.T) {
		zoomed := Transform(img.Pixels(), 2, 0)
		assert.Equal(t, 4, zoomed.Bounds().Dx())
		assert.Equal(t, 2, zoomed.Bounds().Dy())

		w, h := Fit(img.Pixels(), 16, 4, 0.5)
		assert.Equal(t, 8, w)
		assert.Equal(t, 4, h)
	})

	t.Run("released images render nothing", func(t *testing.T) {
		gone := decoded(t, "b")
		gone.Release()
		assert.Equal(t, "", Render(gone, 1, 0, 10, 10))
	})
}
