package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"

	"github.com/kamal-hamza/pupsnap/internal/adapters/gallery"
	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

// errCancelled is returned when the user backs out of a picker
var errCancelled = errors.New("cancelled")

func userAgent() string {
	return "pupsnap/" + Version
}

// clipboardPath reads a file path from the clipboard.
// file:// URIs and surrounding quotes are accepted.
func clipboardPath() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	path := cleanPath(text)
	if path == "" {
		return "", fmt.Errorf("clipboard is empty")
	}
	return path, nil
}

func cleanPath(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}
	text = strings.Trim(text, `"'`)
	text = strings.TrimPrefix(text, "file://")
	if strings.HasPrefix(text, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			text = filepath.Join(home, text[2:])
		}
	}
	return text
}

// pickFromGallery lets the user fuzzy-find an image in dir
func pickFromGallery(dir string) (string, error) {
	images, err := gallery.ListImages(dir)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no images found in %s", dir)
	}

	idx, err := fuzzyfinder.Find(
		images,
		func(i int) string { return images[i].Name },
		fuzzyfinder.WithPromptString("🐾 > "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			img := images[i]
			return fmt.Sprintf("%s\n\nSize:     %s\nModified: %s\nPath:     %s",
				img.Name, ui.FormatBytes(img.Size), img.ModTime.Format("2006-01-02 15:04"), img.Path)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", errCancelled
		}
		return "", err
	}
	return images[idx].Path, nil
}

// loadAsset reads an image file, expanding ~ first
func loadAsset(path string) (*domain.ImageAsset, error) {
	return gallery.LoadFile(cleanPath(path))
}

// describeError is the one-line text shown for a workflow error
func describeError(err error) string {
	switch {
	case errors.Is(err, gallery.ErrNotImage):
		return "That file is not an image. Please pick a photo of your dog's poop."
	case errors.Is(err, errCancelled):
		return "Cancelled."
	}
	return domain.UserMessage(err)
}
