//go:build !nocamera

package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/ports"
	"github.com/kamal-hamza/pupsnap/internal/log"
)

const (
	readyPollInterval = 30 * time.Millisecond
	readyAttempts     = 100
)

// GocvCamera opens V4L2/AVFoundation/MSMF devices through OpenCV
type GocvCamera struct {
	device int
}

// NewGocvCamera uses the camera at the given device index
func NewGocvCamera(device int) *GocvCamera {
	return &GocvCamera{device: device}
}

// Supported probes for a video device. On linux this is a /dev/video* glob,
// elsewhere OpenCV is the only way to know and Open reports the failure.
func (c *GocvCamera) Supported() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return len(DevicePaths()) > 0
}

// Open starts the device and applies the requested resolution
func (c *GocvCamera) Open(ctx context.Context, constraints ports.StreamConstraints) (ports.VideoStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := probeDevice(c.device); err != nil {
		return nil, err
	}

	log.Debug("opening camera", "device", c.device, "facing", constraints.FacingMode,
		"width", constraints.Width, "height", constraints.Height)

	vc, err := gocv.VideoCaptureDevice(c.device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %w", domain.ErrNoCameraFound, c.device, err)
	}

	stream := &gocvStream{vc: vc, frame: gocv.NewMat()}
	if !vc.IsOpened() {
		return stream, fmt.Errorf("%w: device %d did not open", domain.ErrNoCameraFound, c.device)
	}

	if constraints.Width > 0 && constraints.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(constraints.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(constraints.Height))
	}

	return stream, nil
}

// probeDevice maps device node problems to capture errors before OpenCV
// swallows them into a generic failure
func probeDevice(device int) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	path := DevicePath(device)
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("%w: %s", domain.ErrNoCameraFound, path)
		case errors.Is(err, fs.ErrPermission):
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f.Close()
}

type gocvStream struct {
	mu       sync.Mutex
	vc       *gocv.VideoCapture
	frame    gocv.Mat
	stopOnce sync.Once
	stopErr  error
	stopped  bool
}

// WaitReady reads frames until one is non-empty
func (s *gocvStream) WaitReady(ctx context.Context) error {
	for i := 0; i < readyAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return errors.New("stream stopped")
		}
		ok := s.vc.Read(&s.frame) && !s.frame.Empty()
		s.mu.Unlock()
		if ok {
			return nil
		}

		time.Sleep(readyPollInterval)
	}
	return errors.New("camera produced no frames")
}

// Snapshot grabs the newest frame and encodes it as JPEG.
// Falls back to the frame read by WaitReady if the grab fails.
func (s *gocvStream) Snapshot(quality int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, errors.New("stream stopped")
	}

	next := gocv.NewMat()
	defer next.Close()
	img := s.frame
	if s.vc.Read(&next) && !next.Empty() {
		img = next
	}
	if img.Empty() {
		return nil, errors.New("no frame available")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}

// Stop releases the frame buffer and the device
func (s *gocvStream) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.stopped = true
		s.frame.Close()
		s.stopErr = s.vc.Close()
	})
	return s.stopErr
}
