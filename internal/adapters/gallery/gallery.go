// Package gallery loads image files from disk into upload assets.
package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
)

// ReadLimit caps how much of a file is read into memory
const ReadLimit = 64 << 20

// ErrNotImage is returned for files whose content is not an image
var ErrNotImage = errors.New("not an image")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".heic": true,
	".bmp":  true,
}

// Image is a gallery entry
type Image struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// IsImagePath reports whether the file name looks like an image
func IsImagePath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	return imageExtensions[strings.ToLower(filepath.Ext(base))]
}

// LoadFile reads an image from disk. The type comes from the content, not the
// extension. Any image/* type is loaded; the upload enforces the allow-list.
func LoadFile(path string) (*domain.ImageAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotImage, path)
	}
	if info.Size() > ReadLimit {
		return nil, fmt.Errorf("%w: %s is %d bytes", domain.ErrTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return FromBytes(data, filepath.Base(path), domain.SourceFile, info.ModTime())
}

// FromBytes wraps raw image bytes in an asset
func FromBytes(data []byte, name string, source domain.AssetSource, at time.Time) (*domain.ImageAsset, error) {
	mimeType := DetectType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotImage, name, mimeType)
	}

	return &domain.ImageAsset{
		Data:      data,
		MIMEType:  mimeType,
		Name:      name,
		Size:      int64(len(data)),
		Source:    source,
		CreatedAt: at,
	}, nil
}

// DetectType sniffs the MIME type without parameters
func DetectType(data []byte) string {
	mimeType, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mimeType)
}

// ListImages returns the images directly inside dir, newest first
func ListImages(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery: %w", err)
	}

	var images []Image
	for _, entry := range entries {
		if entry.IsDir() || !IsImagePath(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		images = append(images, Image{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].ModTime.Equal(images[j].ModTime) {
			return images[i].Name < images[j].Name
		}
		return images[i].ModTime.After(images[j].ModTime)
	})

	return images, nil
}
