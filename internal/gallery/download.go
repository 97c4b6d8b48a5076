package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 1000

// Saver writes downloaded photos into a directory without overwriting
// existing files
type Saver struct {
	dir string
}

// NewSaver creates a saver for dir; empty means the working directory
func NewSaver(dir string) *Saver {
	return &Saver{dir: dir}
}

// Dir returns the download directory
func (s *Saver) Dir() string {
	return s.dir
}

// Save writes data as name and returns the path written. When the name is
// taken, " (1)", " (2)", ... is inserted before the extension.
func (s *Saver) Save(name string, data []byte) (string, error) {
	name = sanitizeFilename(name)

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return "", err
		}
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(s.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %q in %s", name, s.dir)
}

// sanitizeFilename keeps only the last path element of a server-supplied name
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.Clean("/" + name))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "photo"
	}
	return name
}
