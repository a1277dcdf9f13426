//go:build nocamera

package camera

import (
	"context"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/ports"
)

// GocvCamera is unavailable in builds without OpenCV
type GocvCamera struct{}

func NewGocvCamera(device int) *GocvCamera {
	return &GocvCamera{}
}

func (c *GocvCamera) Supported() bool {
	return false
}

func (c *GocvCamera) Open(ctx context.Context, constraints ports.StreamConstraints) (ports.VideoStream, error) {
	return nil, domain.ErrUnsupportedDevice
}
