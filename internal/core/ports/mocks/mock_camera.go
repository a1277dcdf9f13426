package mocks

import (
	"context"
	"sync"

	"github.com/kamal-hamza/pupsnap/internal/core/ports"
)

// MockCamera is a mock implementation of the Camera interface for testing
type MockCamera struct {
	mu sync.Mutex

	IsSupported bool
	Stream      *MockStream // returned by Open, may be nil
	OpenErr     error

	OpenCalls       int
	LastConstraints ports.StreamConstraints
}

// NewMockCamera creates a supported camera that yields the given frame
func NewMockCamera(frame []byte) *MockCamera {
	return &MockCamera{
		IsSupported: true,
		Stream:      &MockStream{Frame: frame},
	}
}

// Supported reports the configured capability
func (m *MockCamera) Supported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.IsSupported
}

// Open returns the configured stream and error
func (m *MockCamera) Open(ctx context.Context, constraints ports.StreamConstraints) (ports.VideoStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OpenCalls++
	m.LastConstraints = constraints

	if m.Stream == nil {
		return nil, m.OpenErr
	}
	m.Stream.opened = true
	return m.Stream, m.OpenErr
}

// MockStream is a mock video stream that records lifecycle calls
type MockStream struct {
	mu sync.Mutex

	Frame       []byte
	ReadyErr    error
	SnapshotErr error

	// Block, when set, makes WaitReady wait until it is closed
	Block chan struct{}

	opened        bool
	StopCalls     int
	SnapshotCalls int
	LastQuality   int
}

// WaitReady returns ReadyErr, optionally blocking on Block
func (s *MockStream) WaitReady(ctx context.Context) error {
	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ReadyErr
}

// Snapshot returns the configured frame
func (s *MockStream) Snapshot(quality int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SnapshotCalls++
	s.LastQuality = quality
	if s.SnapshotErr != nil {
		return nil, s.SnapshotErr
	}
	return s.Frame, nil
}

// Stop records the release
func (s *MockStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCalls++
	return nil
}

// Released reports whether the stream was opened and then stopped at least once
func (s *MockStream) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.opened || s.StopCalls > 0
}

// Stops returns the number of Stop calls
func (s *MockStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StopCalls
}
