package services

import (
	"context"
	"sync"
	"time"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/ports"
	"github.com/kamal-hamza/pupsnap/internal/log"
)

// AutoResetDelay is how long a successful upload stays on screen
const AutoResetDelay = 2 * time.Second

// Capturer produces a still image from the camera
type Capturer interface {
	CaptureStill(ctx context.Context) (*domain.ImageAsset, error)
}

// Uploader transmits an asset and reports progress while doing so
type Uploader interface {
	Upload(ctx context.Context, asset *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome
}

// Scheduler runs fn once after d. The returned func cancels it.
// fn must not run before the Scheduler returns.
type Scheduler func(d time.Duration, fn func()) (cancel func())

func timerScheduler(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// WorkflowSnapshot is an immutable view of the workflow.
// Versions increase with every change; listeners see them in order.
type WorkflowSnapshot struct {
	Version   uint64
	State     domain.WorkflowState
	Asset     *domain.ImageAsset
	Preview   domain.PreviewHandle
	Progress  *domain.UploadProgress
	Outcome   *domain.UploadOutcome
	Err       error
	Message   string
	Capturing bool
}

// Busy reports whether a capture or upload is outstanding
func (s WorkflowSnapshot) Busy() bool {
	return s.Capturing || s.State == domain.StateUploading
}

// WorkflowOption configures a Workflow
type WorkflowOption func(*Workflow)

// WithScheduler replaces the timer used for the auto-reset
func WithScheduler(s Scheduler) WorkflowOption {
	return func(w *Workflow) { w.schedule = s }
}

// WithResetDelay overrides AutoResetDelay
func WithResetDelay(d time.Duration) WorkflowOption {
	return func(w *Workflow) { w.resetDelay = d }
}

// Workflow owns the select/upload state machine:
//
//	Empty -> Selected -> Uploading -> Succeeded -> (auto) Empty
//	                               -> Failed -> retry | clear | reselect
//
// It holds at most one asset and one preview at a time.
type Workflow struct {
	capturer Capturer
	uploader Uploader
	previews ports.PreviewStore

	schedule   Scheduler
	resetDelay time.Duration

	mu          sync.Mutex
	state       domain.WorkflowState
	asset       *domain.ImageAsset
	preview     domain.PreviewHandle
	progress    *domain.UploadProgress
	outcome     *domain.UploadOutcome
	err         error
	capturing   bool
	inFlight    bool
	uploadGen   uint64
	epoch       uint64
	cancelReset func()
	version     uint64
	closed      bool

	notifyMu     sync.Mutex
	lastNotified uint64
	listeners    []func(WorkflowSnapshot)
}

// NewWorkflow creates a workflow in the Empty state.
// capturer may be nil when the device has no camera.
func NewWorkflow(capturer Capturer, uploader Uploader, previews ports.PreviewStore, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		capturer:   capturer,
		uploader:   uploader,
		previews:   previews,
		schedule:   timerScheduler,
		resetDelay: AutoResetDelay,
		state:      domain.StateEmpty,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnChange registers a listener for snapshots. Listeners run synchronously
// on the goroutine that made the change and must not call back into the Workflow.
func (w *Workflow) OnChange(fn func(WorkflowSnapshot)) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Snapshot returns the current view
func (w *Workflow) Snapshot() WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Capture takes a photo and selects it. A failed capture leaves the
// current state untouched and records the error.
func (w *Workflow) Capture(ctx context.Context) error {
	w.mu.Lock()
	if err := w.guardLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.capturer == nil {
		w.err = domain.ErrUnsupportedDevice
		snap := w.changedLocked()
		w.mu.Unlock()
		w.publish(snap)
		return domain.ErrUnsupportedDevice
	}
	w.capturing = true
	w.err = nil
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)

	asset, err := w.capturer.CaptureStill(ctx)

	w.mu.Lock()
	w.capturing = false
	switch {
	case w.closed:
		err = domain.ErrInvalidTransition
	case err != nil:
		log.Warn("capture failed", "error", err, "class", domain.Classify(err))
		w.err = err
	case !w.state.CanSelect():
		err = domain.ErrInvalidTransition
	default:
		w.selectLocked(asset)
	}
	snap = w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)

	return err
}

// Select makes asset the current selection, replacing any previous one
func (w *Workflow) Select(asset *domain.ImageAsset) error {
	if asset == nil {
		return domain.ErrNoAsset
	}

	w.mu.Lock()
	if err := w.guardLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.selectLocked(asset)
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)

	return nil
}

// Upload sends the selected asset and waits for the outcome.
// The returned error reports why the upload could not start.
func (w *Workflow) Upload(ctx context.Context) (domain.UploadOutcome, error) {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return domain.UploadOutcome{}, domain.ErrInvalidTransition
	case w.inFlight:
		w.mu.Unlock()
		return domain.UploadOutcome{}, domain.ErrUploadInFlight
	case w.capturing:
		w.mu.Unlock()
		return domain.UploadOutcome{}, domain.ErrCaptureInProgress
	case w.asset == nil:
		w.mu.Unlock()
		return domain.UploadOutcome{}, domain.ErrNoAsset
	case !w.state.CanUpload():
		w.mu.Unlock()
		return domain.UploadOutcome{}, domain.ErrInvalidTransition
	}

	asset := w.asset
	w.uploadGen++
	gen := w.uploadGen
	w.inFlight = true
	w.err = nil
	w.outcome = nil
	w.progress = nil
	w.setStateLocked(domain.StateUploading)
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)

	outcome := w.uploader.Upload(ctx, asset, func(p domain.UploadProgress) {
		w.onProgress(gen, p)
	})

	w.mu.Lock()
	w.inFlight = false
	if gen != w.uploadGen || w.state != domain.StateUploading {
		// Cleared while in flight, nobody is waiting for this result
		snap = w.changedLocked()
		w.mu.Unlock()
		w.publish(snap)
		log.Info("discarded outcome of cleared upload", "ok", outcome.OK())
		return outcome, nil
	}

	w.outcome = &outcome
	w.progress = nil
	if outcome.OK() {
		w.setStateLocked(domain.StateSucceeded)
		epoch := w.epoch
		w.cancelReset = w.schedule(w.resetDelay, func() { w.autoReset(epoch) })
	} else {
		w.err = outcome.Err
		w.setStateLocked(domain.StateFailed)
	}
	snap = w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)

	return outcome, nil
}

// Clear drops the selection and returns to Empty from any state.
// An upload in flight keeps running but its result is ignored.
func (w *Workflow) Clear() {
	w.mu.Lock()
	w.clearLocked()
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)
}

// Close releases the held preview and cancels the pending auto-reset.
// Further actions fail with ErrInvalidTransition.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.clearLocked()
	w.closed = true
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)
}

func (w *Workflow) guardLocked() error {
	switch {
	case w.closed:
		return domain.ErrInvalidTransition
	case w.capturing:
		return domain.ErrCaptureInProgress
	case w.inFlight, w.state == domain.StateUploading:
		return domain.ErrUploadInFlight
	case !w.state.CanSelect():
		return domain.ErrInvalidTransition
	}
	return nil
}

func (w *Workflow) onProgress(gen uint64, p domain.UploadProgress) {
	w.mu.Lock()
	if gen != w.uploadGen || w.state != domain.StateUploading {
		w.mu.Unlock()
		return
	}
	w.progress = &p
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)
}

func (w *Workflow) autoReset(epoch uint64) {
	w.mu.Lock()
	if w.closed || epoch != w.epoch || w.state != domain.StateSucceeded {
		w.mu.Unlock()
		return
	}
	w.cancelReset = nil
	w.clearLocked()
	snap := w.changedLocked()
	w.mu.Unlock()
	w.publish(snap)
}

func (w *Workflow) selectLocked(asset *domain.ImageAsset) {
	w.releasePreviewLocked()

	w.asset = asset
	w.progress = nil
	w.outcome = nil
	w.err = nil

	if w.previews != nil {
		h, err := w.previews.Create(asset)
		if err != nil {
			log.Warn("failed to create preview", "name", asset.Name, "error", err)
		} else {
			w.preview = h
		}
	}

	w.setStateLocked(domain.StateSelected)
}

func (w *Workflow) clearLocked() {
	if w.cancelReset != nil {
		w.cancelReset()
		w.cancelReset = nil
	}
	w.releasePreviewLocked()

	// Invalidate the in-flight upload, if any
	w.uploadGen++

	w.asset = nil
	w.progress = nil
	w.outcome = nil
	w.err = nil
	w.setStateLocked(domain.StateEmpty)
}

func (w *Workflow) releasePreviewLocked() {
	if w.preview.IsZero() {
		return
	}
	if err := w.previews.Release(w.preview); err != nil {
		log.Warn("failed to release preview", "id", w.preview.ID, "error", err)
	}
	w.preview = domain.PreviewHandle{}
}

func (w *Workflow) setStateLocked(s domain.WorkflowState) {
	w.state = s
	w.epoch++
}

func (w *Workflow) changedLocked() WorkflowSnapshot {
	w.version++
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() WorkflowSnapshot {
	snap := WorkflowSnapshot{
		Version:   w.version,
		State:     w.state,
		Asset:     w.asset,
		Preview:   w.preview,
		Err:       w.err,
		Message:   domain.UserMessage(w.err),
		Capturing: w.capturing,
	}
	if w.progress != nil {
		p := *w.progress
		snap.Progress = &p
	}
	if w.outcome != nil {
		o := *w.outcome
		snap.Outcome = &o
	}
	return snap
}

// publish delivers snap unless a newer one already went out
func (w *Workflow) publish(snap WorkflowSnapshot) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	if snap.Version <= w.lastNotified {
		return
	}
	w.lastNotified = snap.Version
	for _, fn := range w.listeners {
		fn(snap)
	}
}
