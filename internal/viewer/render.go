package viewer

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
)

const halfBlock = "▀"

// Transform applies rotation (clockwise degrees) and zoom to src. Zoom above
// 1 crops the centre; zoom below 1 is applied by Fit.
func Transform(src image.Image, zoom float64, rotation int) image.Image {
	img := src
	switch rotation % 360 {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	}

	if zoom > 1 {
		b := img.Bounds()
		w := max(1, int(float64(b.Dx())/zoom))
		h := max(1, int(float64(b.Dy())/zoom))
		img = imaging.CropCenter(img, w, h)
	}
	return img
}

// Fit returns the pixel size img scales to inside a box of cols x rows
// terminal cells, two pixels per cell vertically.
func Fit(img image.Image, cols, rows int, zoom float64) (int, int) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || cols <= 0 || rows <= 0 {
		return 0, 0
	}
	boxW, boxH := float64(cols), float64(rows*2)
	scale := min(boxW/float64(b.Dx()), boxH/float64(b.Dy()))
	if zoom < 1 {
		scale *= zoom
	}
	return max(1, int(float64(b.Dx())*scale)), max(1, int(float64(b.Dy())*scale))
}

// Render draws img with the transform applied, centred in cols x rows
// cells using truecolor half blocks.
func Render(img *Image, zoom float64, rotation int, cols, rows int) string {
	src := img.Pixels()
	if src == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	t := Transform(src, zoom, rotation)
	w, h := Fit(t, cols, rows, zoom)
	if w == 0 || h == 0 {
		return ""
	}
	scaled := imaging.Resize(t, w, h, imaging.Lanczos)

	lines := make([]string, 0, (h+1)/2)
	for y := 0; y < h; y += 2 {
		var sb strings.Builder
		for x := 0; x < w; x++ {
			style := lipgloss.NewStyle().Foreground(hex(scaled.NRGBAAt(x, y)))
			if y+1 < h {
				style = style.Background(hex(scaled.NRGBAAt(x, y+1)))
			}
			sb.WriteString(style.Render(halfBlock))
		}
		lines = append(lines, sb.String())
	}

	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}

func hex(c color.NRGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
