package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/ports/mocks"
	"github.com/kamal-hamza/pupsnap/internal/core/services"
	"github.com/kamal-hamza/pupsnap/internal/httpc"
	"github.com/kamal-hamza/pupsnap/pkg/config"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

type dashboardFixture struct {
	camera   *mocks.MockCamera
	previews *mocks.MockPreviewStore
	wf       *services.Workflow
}

func newDashboardFixture(t *testing.T, uploadURL string) *dashboardFixture {
	t.Helper()

	cfg := services.DefaultCaptureConfig()
	cfg.SettleDelay = 0

	ep := config.ResolveEndpoint(config.ModeDevelopment)
	ep.URL = uploadURL

	f := &dashboardFixture{
		camera:   mocks.NewMockCamera([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}),
		previews: mocks.NewMockPreviewStore(),
	}
	f.wf = services.NewWorkflow(
		services.NewCaptureService(f.camera, cfg),
		services.NewUploadService(ep, httpc.NewClient(5*time.Second), "pupsnap/test"),
		f.previews,
		services.WithResetDelay(time.Hour),
	)
	t.Cleanup(f.wf.Close)
	return f
}

func (f *dashboardFixture) model() dashboardModel {
	return newDashboardModel(context.Background(), f.wf, nil, "/tmp")
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// runStatus executes cmd and expects a status message back
func runStatus(t *testing.T, cmd tea.Cmd) statusMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(statusMsg)
	if !ok {
		t.Fatalf("expected statusMsg, got %T", msg)
	}
	return msg
}

func TestDashboardModelInitialization(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	if m.mode != modeMain {
		t.Errorf("Expected mode to be modeMain, got %v", m.mode)
	}
	if m.snap.State != domain.StateEmpty {
		t.Errorf("Expected Empty state, got %v", m.snap.State)
	}
	if m.ready {
		t.Error("Expected ready to be false initially")
	}
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("Expected initializing view before the first resize")
	}
	if m.Init() == nil {
		t.Error("Init should start listening for workflow changes")
	}
}

func TestDashboardWindowSize(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(dashboardModel)

	if !m.ready {
		t.Error("Expected ready after resize")
	}
	if m.width != 120 || m.height != 40 {
		t.Errorf("Expected 120x40, got %dx%d", m.width, m.height)
	}
	if !strings.Contains(m.View(), "pupsnap") {
		t.Error("Expected header in view")
	}
}

func TestDashboardQuit(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	_, cmd := m.updateMain(keyPress('q'))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestDashboardCapture(t *testing.T) {
	f := newDashboardFixture(t, "http://127.0.0.1:1")
	m := f.model()

	_, cmd := m.updateMain(keyPress('c'))
	status := runStatus(t, cmd)

	if !strings.Contains(status.message, "Captured") {
		t.Errorf("Expected capture message, got %q", status.message)
	}

	snap := f.wf.Snapshot()
	if snap.State != domain.StateSelected {
		t.Errorf("Expected Selected, got %v", snap.State)
	}
	if snap.Asset == nil || !strings.HasPrefix(snap.Asset.Name, domain.CapturedNamePrefix) {
		t.Errorf("Expected captured asset, got %+v", snap.Asset)
	}
	if f.previews.Live() != 1 {
		t.Errorf("Expected 1 live preview, got %d", f.previews.Live())
	}
}

func TestDashboardCapture_Unsupported(t *testing.T) {
	f := newDashboardFixture(t, "http://127.0.0.1:1")
	f.camera.IsSupported = false
	m := f.model()

	_, cmd := m.updateMain(keyPress('c'))
	status := runStatus(t, cmd)

	if status.message != domain.UserMessage(domain.ErrUnsupportedDevice) {
		t.Errorf("Unexpected message %q", status.message)
	}
	if f.wf.Snapshot().State != domain.StateEmpty {
		t.Error("Failed capture must not select anything")
	}
}

func TestDashboardUpload_NothingSelected(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	_, cmd := m.updateMain(keyPress('u'))
	status := runStatus(t, cmd)

	if status.message != domain.UserMessage(domain.ErrNoAsset) {
		t.Errorf("Unexpected message %q", status.message)
	}
}

func TestDashboardUpload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := newDashboardFixture(t, server.URL)
	if err := f.wf.Select(testJPEG("walk.jpg")); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	m := f.model()

	_, cmd := m.updateMain(tea.KeyMsg{Type: tea.KeyEnter})
	status := runStatus(t, cmd)

	if status.message != msgUploadSuccess {
		t.Errorf("Unexpected message %q", status.message)
	}
	if f.wf.Snapshot().State != domain.StateSucceeded {
		t.Errorf("Expected Succeeded, got %v", f.wf.Snapshot().State)
	}
}

func TestDashboardUpload_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := newDashboardFixture(t, server.URL)
	if err := f.wf.Select(testJPEG("walk.jpg")); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	m := f.model()

	_, cmd := m.updateMain(keyPress('u'))
	status := runStatus(t, cmd)

	if status.message != msgUploadFailed {
		t.Errorf("Unexpected message %q", status.message)
	}

	snap := f.wf.Snapshot()
	if snap.State != domain.StateFailed {
		t.Errorf("Expected Failed, got %v", snap.State)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(dashboardModel)
	updated, _ = m.Update(snapshotMsg(snap))
	m = updated.(dashboardModel)

	view := m.View()
	if !strings.Contains(view, "Bad Gateway") {
		t.Error("Expected the failure reason in the view")
	}
	if !strings.Contains(view, "try again") {
		t.Error("Expected a retry hint in the view")
	}
}

func TestDashboardClear(t *testing.T) {
	f := newDashboardFixture(t, "http://127.0.0.1:1")
	if err := f.wf.Select(testJPEG("walk.jpg")); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	m := f.model()
	if m.snap.State != domain.StateSelected {
		t.Fatalf("Expected Selected, got %v", m.snap.State)
	}

	updated, _ := m.updateMain(keyPress('x'))
	m = updated.(dashboardModel)

	if m.snap.State != domain.StateEmpty {
		t.Errorf("Expected Empty after clear, got %v", m.snap.State)
	}
	if f.previews.Live() != 0 {
		t.Errorf("Expected preview released, %d live", f.previews.Live())
	}
}

func TestDashboardSnapshotMsg(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	p := domain.NewUploadProgress(300, 1200)
	updated, cmd := m.Update(snapshotMsg(services.WorkflowSnapshot{
		Version:  7,
		State:    domain.StateUploading,
		Asset:    testJPEG("walk.jpg"),
		Progress: &p,
	}))
	m = updated.(dashboardModel)

	if m.snap.Version != 7 {
		t.Errorf("Expected version 7, got %d", m.snap.Version)
	}
	if cmd == nil {
		t.Error("Expected to keep listening for snapshots")
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(dashboardModel)

	view := m.View()
	if !strings.Contains(view, msgUploading) {
		t.Error("Expected uploading message in view")
	}
	if !strings.Contains(view, "25%") {
		t.Error("Expected progress percentage in view")
	}
}

func TestDashboardPickerMode(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	updated, cmd := m.updateMain(keyPress('f'))
	m = updated.(dashboardModel)

	if m.mode != modePicker {
		t.Fatalf("Expected modePicker, got %v", m.mode)
	}
	if cmd == nil {
		t.Error("Expected picker to start reading the directory")
	}

	updated, _ = m.updatePicker(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(dashboardModel)

	if m.mode != modeMain {
		t.Errorf("Expected modeMain after esc, got %v", m.mode)
	}
}

func TestDashboardHelpToggle(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	updated, _ := m.updateMain(keyPress('?'))
	m = updated.(dashboardModel)
	if !m.help.ShowAll {
		t.Error("Expected full help after ?")
	}

	updated, _ = m.updateMain(keyPress('?'))
	m = updated.(dashboardModel)
	if m.help.ShowAll {
		t.Error("Expected short help after second ?")
	}
}

func TestDashboardStatusMessage(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	updated, cmd := m.Update(statusMsg{message: "Selected walk.jpg", style: ui.StyleInfo})
	m = updated.(dashboardModel)

	if m.message != "Selected walk.jpg" {
		t.Errorf("Expected message to be set, got %q", m.message)
	}
	if cmd == nil {
		t.Error("Expected a clear timer")
	}

	// Not expired yet
	updated, _ = m.Update(clearMessageMsg{})
	m = updated.(dashboardModel)
	if m.message == "" {
		t.Error("Message cleared before expiry")
	}

	m.messageExpiry = time.Now().Add(-time.Second)
	updated, _ = m.Update(clearMessageMsg{})
	m = updated.(dashboardModel)
	if m.message != "" {
		t.Errorf("Expected message cleared, got %q", m.message)
	}
}

func TestDashboardInstallBanner(t *testing.T) {
	f := newDashboardFixture(t, "http://127.0.0.1:1")
	prompt := services.NewInstallPrompt(&mocks.MockInstallSignals{}, &mocks.MockInstaller{})
	m := newDashboardModel(context.Background(), f.wf, prompt, "/tmp")

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(dashboardModel)

	if strings.Contains(m.View(), "Install pupsnap") {
		t.Error("Banner shown without an offer")
	}

	m.showInstall = true
	if !strings.Contains(m.View(), "Install pupsnap") {
		t.Error("Expected install banner")
	}

	updated, _ = m.updateMain(keyPress('d'))
	m = updated.(dashboardModel)
	if m.showInstall {
		t.Error("Expected banner hidden after dismiss")
	}
	if prompt.ShouldShow() {
		t.Error("Prompt should stay dismissed")
	}
}

func TestDashboardInstallKeyIgnoredWithoutBanner(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	_, cmd := m.updateMain(keyPress('i'))
	if cmd != nil {
		t.Error("Install key should do nothing while the banner is hidden")
	}
}

func TestDashboardInstallTick_NoPrompt(t *testing.T) {
	m := newDashboardFixture(t, "http://127.0.0.1:1").model()

	_, cmd := m.Update(installTickMsg{})
	if cmd != nil {
		t.Error("Expected no further ticks without a prompt")
	}
}

func TestWatchWorkflow_KeepsLatest(t *testing.T) {
	f := newDashboardFixture(t, "http://127.0.0.1:1")
	feed := watchWorkflow(f.wf)

	if err := f.wf.Select(testJPEG("a.jpg")); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	f.wf.Clear()

	select {
	case snap := <-feed:
		if snap.State != domain.StateEmpty {
			t.Errorf("Expected latest snapshot (Empty), got %v", snap.State)
		}
	default:
		t.Fatal("Expected a snapshot on the feed")
	}

	select {
	case snap := <-feed:
		t.Errorf("Expected only the latest snapshot, also got %v", snap.State)
	default:
	}
}
