package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/pupsnap/internal/core/ports/mocks"
)

type installFixture struct {
	prompt    *InstallPrompt
	signals   *mocks.MockInstallSignals
	installer *mocks.MockInstaller
	clock     time.Time
}

func newInstallFixture() *installFixture {
	f := &installFixture{
		signals:   &mocks.MockInstallSignals{},
		installer: &mocks.MockInstaller{},
		clock:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.prompt = NewInstallPrompt(f.signals, f.installer)
	f.prompt.now = func() time.Time { return f.clock }
	f.prompt.goos = func() string { return "linux" }
	return f
}

func TestInstallPrompt_ShowsAfterDelay(t *testing.T) {
	f := newInstallFixture()
	f.prompt.Start()
	require.Equal(t, 1, f.signals.Subscribed)

	assert.False(t, f.prompt.ShouldShow(), "nothing offered yet")

	f.signals.FireOffer()
	assert.False(t, f.prompt.ShouldShow())

	f.clock = f.clock.Add(InstallPromptDelay - time.Millisecond)
	assert.False(t, f.prompt.ShouldShow())

	f.clock = f.clock.Add(time.Millisecond)
	assert.True(t, f.prompt.ShouldShow())
}

func TestInstallPrompt_AlreadyInstalled(t *testing.T) {
	f := newInstallFixture()
	f.installer.IsInstalled = true

	f.prompt.Start()

	assert.Equal(t, 0, f.signals.Subscribed)
	assert.True(t, f.prompt.Installed())
	assert.False(t, f.prompt.ShouldShow())
}

func TestInstallPrompt_DismissIsSticky(t *testing.T) {
	f := newInstallFixture()
	f.prompt.Start()
	f.signals.FireOffer()
	f.clock = f.clock.Add(time.Minute)
	require.True(t, f.prompt.ShouldShow())

	f.prompt.Dismiss()
	assert.False(t, f.prompt.ShouldShow())

	f.signals.FireOffer()
	assert.False(t, f.prompt.ShouldShow())
}

func TestInstallPrompt_DismissIsPerInstance(t *testing.T) {
	first := newInstallFixture()
	first.prompt.Dismiss()

	second := newInstallFixture()
	second.prompt.Start()
	second.signals.FireOffer()
	second.clock = second.clock.Add(time.Minute)
	assert.True(t, second.prompt.ShouldShow())
}

func TestInstallPrompt_InstalledSignalHides(t *testing.T) {
	f := newInstallFixture()
	f.prompt.Start()
	f.signals.FireOffer()
	f.clock = f.clock.Add(time.Minute)

	f.signals.FireInstalled()

	assert.False(t, f.prompt.ShouldShow())
	assert.True(t, f.prompt.Installed())
}

func TestInstallPrompt_Accept(t *testing.T) {
	f := newInstallFixture()
	f.prompt.Start()

	assert.ErrorIs(t, f.prompt.Accept(context.Background()), ErrNoInstallOffer)

	f.signals.FireOffer()
	require.NoError(t, f.prompt.Accept(context.Background()))

	assert.Equal(t, 1, f.installer.InstallCalls)
	assert.True(t, f.prompt.Installed())
	assert.False(t, f.prompt.ShouldShow())
}

func TestInstallPrompt_AcceptFailure(t *testing.T) {
	f := newInstallFixture()
	cause := errors.New("permission denied")
	f.installer.InstallErr = cause
	f.prompt.Start()
	f.signals.FireOffer()

	err := f.prompt.Accept(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.False(t, f.prompt.Installed())

	// The offer was consumed
	assert.ErrorIs(t, f.prompt.Accept(context.Background()), ErrNoInstallOffer)
}

func TestInstallPrompt_StopUnsubscribes(t *testing.T) {
	f := newInstallFixture()
	f.prompt.Start()
	f.prompt.Start()
	assert.Equal(t, 1, f.signals.Subscribed)

	f.prompt.Stop()
	f.prompt.Stop()
	assert.Equal(t, 1, f.signals.Unsubscribed)

	// Signals after teardown are not observed
	f.signals.FireOffer()
	f.clock = f.clock.Add(time.Minute)
	assert.False(t, f.prompt.ShouldShow())
}

func TestInstallPrompt_ManualInstructions(t *testing.T) {
	f := newInstallFixture()
	assert.Nil(t, f.prompt.ManualInstructions())

	goos := "windows"
	f.prompt.goos = func() string { return goos }
	assert.Len(t, f.prompt.ManualInstructions(), 3)

	// Evaluated on every call
	goos = "darwin"
	assert.Nil(t, f.prompt.ManualInstructions())

	goos = "windows"
	f.prompt.Dismiss()
	assert.Nil(t, f.prompt.ManualInstructions())
}
