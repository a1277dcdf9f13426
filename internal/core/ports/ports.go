package ports

import (
	"context"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
)

// StreamConstraints describes the requested live video stream
type StreamConstraints struct {
	FacingMode  string // "environment" (rear) or "user" (front)
	Width       int
	Height      int
	AspectRatio float64
}

// Camera defines the port for acquiring live video streams
type Camera interface {
	// Supported reports whether the device exposes a camera capability.
	// Answered fresh on every call.
	Supported() bool

	// Open starts a video stream. Implementations wrap domain.ErrPermissionDenied
	// or domain.ErrNoCameraFound when those conditions apply. A non-nil stream
	// returned alongside an error is partially acquired and must be stopped.
	Open(ctx context.Context, constraints StreamConstraints) (VideoStream, error)
}

// VideoStream is a live camera stream owned by a single capture
type VideoStream interface {
	// WaitReady blocks until the first frame is available
	WaitReady(ctx context.Context) error

	// Snapshot samples exactly one frame encoded as JPEG at the given quality (1-100)
	Snapshot(quality int) ([]byte, error)

	// Stop releases the stream (all tracks). Safe to call more than once.
	Stop() error
}

// PreviewStore defines the port for local preview resources
type PreviewStore interface {
	// Create generates a preview for the asset
	Create(asset *domain.ImageAsset) (domain.PreviewHandle, error)

	// Release frees the preview. Releasing twice is an error.
	Release(handle domain.PreviewHandle) error
}

// InstallSignals is the subscription contract for install lifecycle events
type InstallSignals interface {
	// Subscribe registers interest in "install offer available" and
	// "install completed". The returned func unregisters both.
	Subscribe(onOffer func(), onInstalled func()) (unsubscribe func())
}

// Installer defines the port for placing the application on PATH
type Installer interface {
	// Installed reports whether the application is already installed
	Installed() bool

	// Install performs the installation
	Install(ctx context.Context) error
}

// FileOpener defines the port for opening files with default applications
type FileOpener interface {
	// Open opens a file with the system's default application
	Open(ctx context.Context, filepath string) error
}
