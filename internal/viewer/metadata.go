package viewer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata is the EXIF information shown in the viewer's info panel.
// Zero fields were absent from the file.
type Metadata struct {
	CameraMake   string
	CameraModel  string
	LensModel    string
	FocalLength  string
	Aperture     string
	ShutterSpeed string
	ISO          int
	DateTaken    time.Time
	HasLocation  bool
	Latitude     float64
	Longitude    float64
}

// Camera returns "Make Model" without repeating the make
func (m Metadata) Camera() string {
	if m.CameraModel == "" {
		return m.CameraMake
	}
	if m.CameraMake == "" || strings.HasPrefix(strings.ToLower(m.CameraModel), strings.ToLower(m.CameraMake)) {
		return m.CameraModel
	}
	return m.CameraMake + " " + m.CameraModel
}

// Exposure returns the capture settings joined for display
func (m Metadata) Exposure() string {
	var parts []string
	for _, s := range []string{m.FocalLength, m.Aperture, m.ShutterSpeed} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if m.ISO > 0 {
		parts = append(parts, fmt.Sprintf("ISO %d", m.ISO))
	}
	return strings.Join(parts, "  ")
}

// ReadMetadata extracts EXIF metadata. Images without EXIF yield a zero
// Metadata and no error.
func ReadMetadata(data []byte) Metadata {
	var m Metadata

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return m
	}

	m.CameraMake = stringTag(x, exif.Make)
	m.CameraModel = stringTag(x, exif.Model)
	m.LensModel = stringTag(x, exif.LensModel)

	if v, ok := ratTag(x, exif.FocalLength); ok {
		m.FocalLength = fmt.Sprintf("%.1fmm", v)
	}
	if v, ok := ratTag(x, exif.FNumber); ok {
		m.Aperture = fmt.Sprintf("f/%.1f", v)
	}

	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if rat, err := tag.Rat(0); err == nil && rat.Denom().Int64() != 0 {
			num, denom := rat.Num().Int64(), rat.Denom().Int64()
			switch {
			case denom == 1:
				m.ShutterSpeed = fmt.Sprintf("%ds", num)
			case num == 1:
				m.ShutterSpeed = fmt.Sprintf("1/%ds", denom)
			default:
				m.ShutterSpeed = fmt.Sprintf("%d/%ds", num, denom)
			}
		}
	}

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil {
			m.ISO = v
		}
	}

	if tm, err := x.DateTime(); err == nil {
		m.DateTaken = tm
	}

	if lat, lng, err := x.LatLong(); err == nil {
		m.HasLocation = true
		m.Latitude = lat
		m.Longitude = lng
	}

	return m
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(val, "\x00"))
}

func ratTag(x *exif.Exif, name exif.FieldName) (float64, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	rat, err := tag.Rat(0)
	if err != nil || rat.Denom().Int64() == 0 {
		return 0, false
	}
	return float64(rat.Num().Int64()) / float64(rat.Denom().Int64()), true
}
