package mocks

import (
	"context"
	"sync"
)

// MockInstallSignals lets tests fire install lifecycle signals by hand
type MockInstallSignals struct {
	mu          sync.Mutex
	onOffer     func()
	onInstalled func()

	Subscribed   int
	Unsubscribed int
}

// Subscribe stores the callbacks
func (m *MockInstallSignals) Subscribe(onOffer func(), onInstalled func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onOffer = onOffer
	m.onInstalled = onInstalled
	m.Subscribed++

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.onOffer = nil
		m.onInstalled = nil
		m.Unsubscribed++
	}
}

// FireOffer raises "install offer available" if subscribed
func (m *MockInstallSignals) FireOffer() {
	m.mu.Lock()
	fn := m.onOffer
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FireInstalled raises "install completed" if subscribed
func (m *MockInstallSignals) FireInstalled() {
	m.mu.Lock()
	fn := m.onInstalled
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// MockInstaller is a mock implementation of the Installer interface
type MockInstaller struct {
	mu           sync.Mutex
	IsInstalled  bool
	InstallErr   error
	InstallCalls int
}

// Installed reports the configured state
func (m *MockInstaller) Installed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.IsInstalled
}

// Install marks the installer as installed unless InstallErr is set
func (m *MockInstaller) Install(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InstallCalls++
	if m.InstallErr != nil {
		return m.InstallErr
	}
	m.IsInstalled = true
	return nil
}
