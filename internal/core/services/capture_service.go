package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/ports"
	"github.com/kamal-hamza/pupsnap/internal/log"
)

// CaptureConfig holds the fixed capture parameters
type CaptureConfig struct {
	FacingMode  string
	Width       int
	Height      int
	AspectRatio float64
	Quality     int           // JPEG quality 1-100
	SettleDelay time.Duration // exposure/focus settling after the first frame
}

// DefaultCaptureConfig returns rear camera, 1080p, JPEG quality 80, 500ms settle
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		FacingMode:  "environment",
		Width:       1920,
		Height:      1080,
		AspectRatio: 16.0 / 9.0,
		Quality:     80,
		SettleDelay: 500 * time.Millisecond,
	}
}

// CaptureService acquires a single still image from a live camera stream
type CaptureService struct {
	camera ports.Camera
	cfg    CaptureConfig
	now    func() time.Time
	busy   atomic.Bool
}

func NewCaptureService(camera ports.Camera, cfg CaptureConfig) *CaptureService {
	return &CaptureService{
		camera: camera,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Supported reports whether the device exposes a camera right now
func (s *CaptureService) Supported() bool {
	return s.camera != nil && s.camera.Supported()
}

// CaptureStill opens a stream, waits for the first frame, lets exposure
// settle, samples one frame as JPEG and releases the stream.
func (s *CaptureService) CaptureStill(ctx context.Context) (*domain.ImageAsset, error) {
	if !s.Supported() {
		return nil, domain.ErrUnsupportedDevice
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, domain.ErrCaptureInProgress
	}
	defer s.busy.Store(false)

	logger := log.With("component", "capture")

	stream, err := s.camera.Open(ctx, ports.StreamConstraints{
		FacingMode:  s.cfg.FacingMode,
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		AspectRatio: s.cfg.AspectRatio,
	})
	if stream != nil {
		defer func() {
			if stopErr := stream.Stop(); stopErr != nil {
				logger.Warn("failed to stop camera stream", "error", stopErr)
			}
		}()
	}
	if err != nil {
		logger.Warn("failed to open camera", "error", err)
		return nil, classifyCaptureError(err)
	}

	if err := stream.WaitReady(ctx); err != nil {
		return nil, classifyCaptureError(err)
	}

	if err := sleepContext(ctx, s.cfg.SettleDelay); err != nil {
		return nil, classifyCaptureError(err)
	}

	frame, err := stream.Snapshot(s.cfg.Quality)
	if err != nil {
		return nil, classifyCaptureError(err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("%w: empty frame", domain.ErrCaptureFailed)
	}

	asset := domain.NewCapturedAsset(frame, s.now())
	logger.Info("captured still", "name", asset.Name, "bytes", asset.Size)
	return asset, nil
}

// classifyCaptureError keeps distinguishable camera conditions and folds
// everything else into ErrCaptureFailed
func classifyCaptureError(err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrNoCameraFound),
		errors.Is(err, domain.ErrUnsupportedDevice),
		errors.Is(err, domain.ErrCaptureFailed):
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrCaptureFailed, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
