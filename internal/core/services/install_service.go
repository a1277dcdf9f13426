package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/kamal-hamza/pupsnap/internal/core/ports"
	"github.com/kamal-hamza/pupsnap/internal/log"
)

// InstallPromptDelay lets the user get going before the prompt appears
const InstallPromptDelay = 3 * time.Second

// ErrNoInstallOffer is returned by Accept when nothing can be installed right now
var ErrNoInstallOffer = errors.New("no install offer available")

// InstallPrompt decides when to suggest installing pupsnap onto PATH.
// It is independent of the capture/upload workflow.
type InstallPrompt struct {
	signals   ports.InstallSignals
	installer ports.Installer
	showDelay time.Duration
	now       func() time.Time
	goos      func() string

	mu          sync.Mutex
	offered     bool
	offeredAt   time.Time
	installed   bool
	dismissed   bool // this process only, never persisted
	subscribed  bool
	unsubscribe func()
}

func NewInstallPrompt(signals ports.InstallSignals, installer ports.Installer) *InstallPrompt {
	return &InstallPrompt{
		signals:   signals,
		installer: installer,
		showDelay: InstallPromptDelay,
		now:       time.Now,
		goos:      func() string { return runtime.GOOS },
	}
}

// Start subscribes to the install signals unless pupsnap is already installed.
// Signals may fire synchronously from Subscribe.
func (p *InstallPrompt) Start() {
	p.mu.Lock()
	if p.subscribed {
		p.mu.Unlock()
		return
	}
	if p.installer.Installed() {
		p.installed = true
		p.mu.Unlock()
		return
	}
	p.subscribed = true
	p.mu.Unlock()

	unsubscribe := p.signals.Subscribe(p.handleOffer, p.handleInstalled)

	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()
}

// Stop unsubscribes from the install signals
func (p *InstallPrompt) Stop() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.subscribed = false
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (p *InstallPrompt) handleOffer() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.installed || p.offered {
		return
	}
	log.Debug("install offer available")
	p.offered = true
	p.offeredAt = p.now()
}

func (p *InstallPrompt) handleInstalled() {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Info("pupsnap installed")
	p.installed = true
	p.offered = false
}

// ShouldShow reports whether the prompt is visible at this moment
func (p *InstallPrompt) ShouldShow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.installed || p.dismissed || !p.offered {
		return false
	}
	return p.now().Sub(p.offeredAt) >= p.showDelay
}

// Installed reports whether the install completed
func (p *InstallPrompt) Installed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}

// Dismiss hides the prompt for the rest of this process
func (p *InstallPrompt) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed = true
}

// Accept installs pupsnap. The offer is consumed either way.
func (p *InstallPrompt) Accept(ctx context.Context) error {
	p.mu.Lock()
	if !p.offered {
		p.mu.Unlock()
		return ErrNoInstallOffer
	}
	p.offered = false
	p.mu.Unlock()

	if err := p.installer.Install(ctx); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	p.mu.Lock()
	p.installed = true
	p.mu.Unlock()
	return nil
}

// ManualInstructions returns steps for platforms where pupsnap cannot
// install itself, or nil. The platform is checked on every call.
func (p *InstallPrompt) ManualInstructions() []string {
	p.mu.Lock()
	hidden := p.installed || p.dismissed
	p.mu.Unlock()

	if hidden || p.goos() != "windows" {
		return nil
	}
	return []string{
		"Open Settings and search for \"environment variables\"",
		"Edit the Path entry of your user account",
		"Add the folder containing pupsnap.exe and confirm with OK",
	}
}
