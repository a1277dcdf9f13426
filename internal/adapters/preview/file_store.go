// Package preview keeps on-disk copies of selected images so external
// viewers can display them.
package preview

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
)

// ErrUnknownPreview is returned when releasing a handle that is not live
var ErrUnknownPreview = errors.New("preview not found")

var extensions = map[string]string{
	domain.MIMEJPEG: ".jpg",
	domain.MIMEPNG:  ".png",
	domain.MIMEWebP: ".webp",
}

// FileStore writes previews into a directory and deletes them on release
type FileStore struct {
	dir string

	mu   sync.Mutex
	live map[string]string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		live: make(map[string]string),
	}
}

// Create writes the asset bytes to a uniquely named file
func (s *FileStore) Create(asset *domain.ImageAsset) (domain.PreviewHandle, error) {
	if asset == nil {
		return domain.PreviewHandle{}, domain.ErrNoAsset
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return domain.PreviewHandle{}, fmt.Errorf("failed to create preview directory: %w", err)
	}

	id := uuid.NewString()
	ext, ok := extensions[asset.MIMEType]
	if !ok {
		ext = filepath.Ext(asset.Name)
	}
	path := filepath.Join(s.dir, id+ext)

	if err := os.WriteFile(path, asset.Data, 0600); err != nil {
		return domain.PreviewHandle{}, fmt.Errorf("failed to write preview: %w", err)
	}

	s.mu.Lock()
	s.live[id] = path
	s.mu.Unlock()

	return domain.PreviewHandle{ID: id, Path: path}, nil
}

// Release deletes the preview file. A handle can be released once.
func (s *FileStore) Release(h domain.PreviewHandle) error {
	s.mu.Lock()
	path, ok := s.live[h.ID]
	delete(s.live, h.ID)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreview, h.ID)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove preview: %w", err)
	}
	return nil
}

// Live returns the number of previews not yet released
func (s *FileStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// ReleaseAll deletes every live preview
func (s *FileStore) ReleaseAll() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.Release(domain.PreviewHandle{ID: id}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
