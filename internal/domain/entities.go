package domain

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Photo is the server-side record of an uploaded image.
// Once created it is only ever replaced field-by-field (see PhotoUpdate).
type Photo struct {
	ID           string    `json:"id"`            // Opaque, unique
	Filename     string    `json:"filename"`      // Name the server stored the file under
	OriginalName string    `json:"original_name"` // Name the user uploaded
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"` // Bytes
	UserID       string    `json:"user_id"`
	UploadDate   Timestamp `json:"upload_date"`
	URL          string    `json:"url"` // Retrieval locator, relative to the API base
}

// UploadedAt returns the upload instant
func (p Photo) UploadedAt() time.Time {
	return p.UploadDate.Time
}

// DisplayName returns the name to show for the photo
func (p Photo) DisplayName() string {
	if p.OriginalName != "" {
		return p.OriginalName
	}
	if p.Filename != "" {
		return p.Filename
	}
	return "photo-" + p.ID
}

// FormattedSize returns the size in a human-readable format
func (p Photo) FormattedSize() string {
	return FormatBytes(p.Size)
}

// FormatBytes renders a byte count using 1024-based units
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d Bytes", n)
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", value), "0"), ".")
	return s + " " + units[i]
}

// PhotoUpdate is a partial update. Nil fields are left unchanged.
type PhotoUpdate struct {
	Filename     *string
	OriginalName *string
	ContentType  *string
	Size         *int64
	UserID       *string
	UploadDate   *Timestamp
	URL          *string
}

// Apply returns a copy of p with the non-nil fields of u applied
func (u PhotoUpdate) Apply(p Photo) Photo {
	if u.Filename != nil {
		p.Filename = *u.Filename
	}
	if u.OriginalName != nil {
		p.OriginalName = *u.OriginalName
	}
	if u.ContentType != nil {
		p.ContentType = *u.ContentType
	}
	if u.Size != nil {
		p.Size = *u.Size
	}
	if u.UserID != nil {
		p.UserID = *u.UserID
	}
	if u.UploadDate != nil {
		p.UploadDate = *u.UploadDate
	}
	if u.URL != nil {
		p.URL = *u.URL
	}
	return p
}

// PhotoPage is one page of the list endpoint
type PhotoPage struct {
	Photos []Photo `json:"photos"`
	Total  int     `json:"total"`
}

// Upload describes a local file to send to the photo service
type Upload struct {
	Filename    string
	ContentType string // Detected from the content when empty
	Size        int64  // Used for progress reporting; <= 0 disables it
	Content     io.Reader
}

// User is the signed-in identity as seen by the client
type User struct {
	ID        string
	Name      string
	ExpiresAt time.Time // Zero when unknown
}
