package photoapi

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/photure/internal/domain"
)

// PhotoResponse is a photo as serialized by the service
type PhotoResponse struct {
	ID           string           `json:"id"`
	Filename     string           `json:"filename"`
	OriginalName string           `json:"original_name"`
	ContentType  string           `json:"content_type"`
	Size         int64            `json:"size"`
	UserID       string           `json:"user_id"`
	UploadDate   domain.Timestamp `json:"upload_date"`
	URL          string           `json:"url"`
}

// PhotoListResponse is the body of GET /api/photos
type PhotoListResponse struct {
	Photos []PhotoResponse `json:"photos"`
	Total  int             `json:"total"`
}

// MessageResponse is the body of simple acknowledgements (delete, ping)
type MessageResponse struct {
	Message string `json:"message"`
}

// errorResponse is the service's error envelope. Detail is a string for
// most errors and a list of objects for validation failures.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// MapPhoto converts a service photo to the domain model
func MapPhoto(p PhotoResponse) domain.Photo {
	return domain.Photo{
		ID:           p.ID,
		Filename:     p.Filename,
		OriginalName: p.OriginalName,
		ContentType:  p.ContentType,
		Size:         p.Size,
		UserID:       p.UserID,
		UploadDate:   p.UploadDate,
		URL:          p.URL,
	}
}

// MapPhotos converts a page of service photos, never returning nil
func MapPhotos(items []PhotoResponse) []domain.Photo {
	photos := make([]domain.Photo, 0, len(items))
	for _, p := range items {
		photos = append(photos, MapPhoto(p))
	}
	return photos
}

// parseErrorDetail extracts a readable message from an error body
func parseErrorDetail(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Detail) > 0 {
		var s string
		if json.Unmarshal(resp.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(resp.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	return truncateDetail(strings.TrimSpace(string(body)), maxDetailLen)
}

// Longest raw error body kept as a detail, in bytes
const maxDetailLen = 200

// truncateDetail cuts s to at most n bytes without splitting a rune
func truncateDetail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
