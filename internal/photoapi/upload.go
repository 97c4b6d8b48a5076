package photoapi

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/mmcdole/photure/internal/domain"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Bytes examined when detecting the content type
const sniffLen = 512

// UploadPhoto sends a photo as multipart form field "file".
// onProgress receives the share of the request body written so far, 0-100.
func (c *Client) UploadPhoto(ctx context.Context, token string, upload domain.Upload, onProgress domain.ProgressFunc) (domain.Photo, error) {
	if upload.Content == nil {
		return domain.Photo{}, fmt.Errorf("%w: upload has no content", domain.ErrBadRequest)
	}

	filename := filepath.Base(upload.Filename)
	content := bufio.NewReaderSize(upload.Content, sniffLen)
	contentType := upload.ContentType
	if contentType == "" {
		head, err := content.Peek(sniffLen)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return domain.Photo{}, fmt.Errorf("failed to read upload: %w", err)
		}
		contentType = DetectContentType(filename, head)
	}

	// The part header and closing boundary are built up front so the file
	// itself is streamed from its reader
	var envelope bytes.Buffer
	mw := multipart.NewWriter(&envelope)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)

	if _, err := mw.CreatePart(header); err != nil {
		return domain.Photo{}, fmt.Errorf("failed to create multipart part: %w", err)
	}
	prefixLen := envelope.Len()
	if err := mw.Close(); err != nil {
		return domain.Photo{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	prefix := envelope.Bytes()[:prefixLen]
	suffix := envelope.Bytes()[prefixLen:]

	// Unknown size: chunked body, progress only at start and end
	total := int64(-1)
	if upload.Size > 0 {
		total = int64(len(prefix)) + upload.Size + int64(len(suffix))
	}
	body := &progressReader{
		r:          io.MultiReader(bytes.NewReader(prefix), content, bytes.NewReader(suffix)),
		total:      total,
		onProgress: onProgress,
		last:       -1,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", nil, body, token)
	if err != nil {
		return domain.Photo{}, err
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body.report(0)

	var resp PhotoResponse
	if err := c.doJSON(ctx, "UploadPhoto", req, &resp); err != nil {
		return domain.Photo{}, err
	}

	body.report(100)
	c.logger.Info("uploaded photo", "id", resp.ID, "name", resp.OriginalName, "size", resp.Size)
	return MapPhoto(resp), nil
}

// DetectContentType guesses a MIME type from the file extension, falling
// back to sniffing the content
func DetectContentType(filename string, content []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
		return ct
	}
	ct := http.DetectContentType(content[:min(len(content), sniffLen)])
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

// progressReader reports how much of the body the transport has consumed
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       int
	onProgress domain.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		// Hold back 100 until the response arrives
		pct := int(p.read * 99 / p.total)
		p.report(pct)
	}
	return n, err
}

func (p *progressReader) report(pct int) {
	if p.onProgress == nil || pct == p.last {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct
	p.onProgress(pct)
}
