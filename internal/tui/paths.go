package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".heic": true,
	".heif": true,
}

// isImageName reports whether name has an image file extension
func isImageName(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// expandHome replaces a leading "~" with the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}

// SuggestPaths completes the last path segment of input against the
// directories and image files next to it, best fuzzy match first
func SuggestPaths(input string) []string {
	expanded := expandHome(input)
	if input == "~" {
		expanded += string(filepath.Separator)
		input += string(filepath.Separator)
	}
	dir, base := filepath.Split(expanded)
	prefix := input[:len(input)-len(base)]
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	isDir := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if e.IsDir() {
			isDir[name] = true
			names = append(names, name)
		} else if isImageName(name) {
			names = append(names, name)
		}
	}

	var ranked []string
	if base == "" {
		sort.SliceStable(names, func(i, j int) bool {
			if isDir[names[i]] != isDir[names[j]] {
				return isDir[names[i]]
			}
			return names[i] < names[j]
		})
		ranked = names
	} else {
		matches := fuzzy.RankFindFold(base, names)
		sort.Stable(matches)
		for _, m := range matches {
			ranked = append(ranked, m.Target)
		}
	}

	out := make([]string, 0, len(ranked))
	for _, name := range ranked {
		s := prefix + name
		if isDir[name] {
			s += string(filepath.Separator)
		}
		out = append(out, s)
	}
	return out
}

// ExpandUploadPaths turns the upload prompt's input into files to upload.
// A directory expands to the image files directly inside it.
func ExpandUploadPaths(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("no file selected")
	}
	path := expandHome(input)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", input, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", input, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isImageName(e.Name()) && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", input)
	}
	return files, nil
}
