package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/ports/mocks"
)

// fakeUploader runs fn for every call, or succeeds with 201 when fn is nil
type fakeUploader struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, asset *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome
	calls int
	seen  []*domain.ImageAsset
}

func (f *fakeUploader) Upload(ctx context.Context, asset *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, asset)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return domain.Success(201)
	}
	return fn(ctx, asset, onProgress)
}

// fakeScheduler records scheduled callbacks so tests can fire them
type fakeScheduler struct {
	mu        sync.Mutex
	delays    []time.Duration
	pending   []func()
	cancelled int
}

func (f *fakeScheduler) schedule(d time.Duration, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	f.pending = append(f.pending, fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancelled++
	}
}

// fire runs every recorded callback, cancelled or not
func (f *fakeScheduler) fire() {
	f.mu.Lock()
	fns := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type workflowFixture struct {
	wf        *Workflow
	camera    *mocks.MockCamera
	uploader  *fakeUploader
	previews  *mocks.MockPreviewStore
	scheduler *fakeScheduler
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{
		camera:    mocks.NewMockCamera([]byte{0xFF, 0xD8, 0xFF}),
		uploader:  &fakeUploader{},
		previews:  mocks.NewMockPreviewStore(),
		scheduler: &fakeScheduler{},
	}
	capture := NewCaptureService(f.camera, testCaptureConfig())
	f.wf = NewWorkflow(capture, f.uploader, f.previews, WithScheduler(f.scheduler.schedule))
	return f
}

func jpegAsset(name string, size int) *domain.ImageAsset {
	a := testAsset(size, domain.MIMEJPEG)
	a.Name = name
	return a
}

func TestWorkflow_StartsEmpty(t *testing.T) {
	f := newWorkflowFixture()

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateEmpty, snap.State)
	assert.Nil(t, snap.Asset)
	assert.True(t, snap.Preview.IsZero())
	assert.False(t, snap.Busy())
}

func TestWorkflow_SelectCreatesPreview(t *testing.T) {
	f := newWorkflowFixture()

	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSelected, snap.State)
	assert.Equal(t, "a.jpg", snap.Asset.Name)
	assert.Equal(t, "preview-1", snap.Preview.ID)
	assert.Equal(t, 1, f.previews.Live())
}

func TestWorkflow_SelectNil(t *testing.T) {
	f := newWorkflowFixture()
	assert.ErrorIs(t, f.wf.Select(nil), domain.ErrNoAsset)
}

func TestWorkflow_ReplaceReleasesPreviousPreview(t *testing.T) {
	f := newWorkflowFixture()

	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))
	require.NoError(t, f.wf.Select(jpegAsset("b.jpg", 10)))

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSelected, snap.State)
	assert.Equal(t, "b.jpg", snap.Asset.Name)
	assert.Equal(t, 1, f.previews.ReleaseCount("preview-1"))
	assert.Equal(t, 0, f.previews.ReleaseCount("preview-2"))
	assert.Equal(t, 1, f.previews.Live())
}

func TestWorkflow_PreviewFailureStillSelects(t *testing.T) {
	f := newWorkflowFixture()
	f.previews.CreateErr = errors.New("disk full")

	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSelected, snap.State)
	assert.True(t, snap.Preview.IsZero())

	f.wf.Clear()
	assert.Equal(t, domain.StateEmpty, f.wf.Snapshot().State)
}

func TestWorkflow_SuccessThenAutoReset(t *testing.T) {
	f := newWorkflowFixture()
	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	outcome, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSucceeded, snap.State)
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, []time.Duration{AutoResetDelay}, f.scheduler.delays)

	f.scheduler.fire()

	snap = f.wf.Snapshot()
	assert.Equal(t, domain.StateEmpty, snap.State)
	assert.Nil(t, snap.Asset)
	assert.True(t, snap.Preview.IsZero())
	assert.Equal(t, 0, f.previews.Live())
	assert.Equal(t, 1, f.previews.ReleaseCount("preview-1"))
}

func TestWorkflow_ServerErrorKeepsAsset(t *testing.T) {
	f := newWorkflowFixture()
	f.uploader.fn = func(context.Context, *domain.ImageAsset, ProgressFunc) domain.UploadOutcome {
		return domain.Failure(&domain.HTTPStatusError{Code: 500, Status: "Internal Server Error"})
	}

	asset := jpegAsset("a.jpg", 10)
	require.NoError(t, f.wf.Select(asset))

	outcome, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.OK())

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Same(t, asset, snap.Asset)
	assert.Equal(t, "preview-1", snap.Preview.ID)
	assert.Contains(t, snap.Message, "Internal Server Error")
	assert.Empty(t, f.scheduler.delays, "no auto-reset after failure")
}

func TestWorkflow_RetryFromFailed(t *testing.T) {
	f := newWorkflowFixture()
	attempts := 0
	f.uploader.fn = func(context.Context, *domain.ImageAsset, ProgressFunc) domain.UploadOutcome {
		attempts++
		if attempts == 1 {
			return domain.Failure(domain.ErrNetwork)
		}
		return domain.Success(200)
	}

	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	_, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	failed := f.wf.Snapshot()
	assert.Equal(t, domain.StateFailed, failed.State)
	assert.ErrorIs(t, failed.Err, domain.ErrNetwork)

	// A new attempt clears the previous error before starting
	var sawUploadingWithoutErr bool
	f.wf.OnChange(func(s WorkflowSnapshot) {
		if s.State == domain.StateUploading && s.Err == nil {
			sawUploadingWithoutErr = true
		}
	})

	outcome, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.OK())
	assert.True(t, sawUploadingWithoutErr)
	assert.Nil(t, f.wf.Snapshot().Err)
}

func TestWorkflow_ValidationFailureLandsInFailed(t *testing.T) {
	f := newWorkflowFixture()
	svc := NewUploadService(testEndpoint("http://127.0.0.1:1"), nil, "")
	f.wf = NewWorkflow(nil, svc, f.previews, WithScheduler(f.scheduler.schedule))

	require.NoError(t, f.wf.Select(testAsset(10, "image/gif")))

	outcome, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, outcome.Err, domain.ErrInvalidType)
	assert.Equal(t, domain.StateFailed, f.wf.Snapshot().State)
}

func TestWorkflow_ClearReleasesExactlyOnce(t *testing.T) {
	for _, fail := range []bool{false, true} {
		f := newWorkflowFixture()
		if fail {
			f.uploader.fn = func(context.Context, *domain.ImageAsset, ProgressFunc) domain.UploadOutcome {
				return domain.Failure(domain.ErrTimeout)
			}
		}

		require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))
		if fail {
			_, err := f.wf.Upload(context.Background())
			require.NoError(t, err)
			require.Equal(t, domain.StateFailed, f.wf.Snapshot().State)
		}

		f.wf.Clear()
		f.wf.Clear()

		snap := f.wf.Snapshot()
		assert.Equal(t, domain.StateEmpty, snap.State)
		assert.Nil(t, snap.Asset)
		assert.Nil(t, snap.Err)
		assert.Equal(t, 1, f.previews.ReleaseCount("preview-1"))
		assert.Equal(t, 0, f.previews.Live())
	}
}

func TestWorkflow_StaleAutoResetIsNoop(t *testing.T) {
	f := newWorkflowFixture()
	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))
	_, err := f.wf.Upload(context.Background())
	require.NoError(t, err)

	// User clears and picks something else before the timer fires
	f.wf.Clear()
	assert.Equal(t, 1, f.scheduler.cancelled)
	require.NoError(t, f.wf.Select(jpegAsset("b.jpg", 10)))

	f.scheduler.fire()

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSelected, snap.State)
	assert.Equal(t, "b.jpg", snap.Asset.Name)
	assert.Equal(t, 1, f.previews.Live())
}

func TestWorkflow_SelectNotAllowedWhileSucceeded(t *testing.T) {
	f := newWorkflowFixture()
	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))
	_, err := f.wf.Upload(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, f.wf.Select(jpegAsset("b.jpg", 10)), domain.ErrInvalidTransition)

	_, err = f.wf.Upload(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestWorkflow_UploadWithoutAsset(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.wf.Upload(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoAsset)
	assert.Equal(t, 0, f.uploader.calls)
}

func TestWorkflow_SecondUploadWhileInFlight(t *testing.T) {
	f := newWorkflowFixture()
	started := make(chan struct{})
	release := make(chan struct{})
	f.uploader.fn = func(context.Context, *domain.ImageAsset, ProgressFunc) domain.UploadOutcome {
		close(started)
		<-release
		return domain.Success(200)
	}

	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.wf.Upload(context.Background())
	}()
	<-started

	assert.True(t, f.wf.Snapshot().Busy())

	_, err := f.wf.Upload(context.Background())
	assert.ErrorIs(t, err, domain.ErrUploadInFlight)
	assert.ErrorIs(t, f.wf.Select(jpegAsset("b.jpg", 10)), domain.ErrUploadInFlight)
	assert.ErrorIs(t, f.wf.Capture(context.Background()), domain.ErrUploadInFlight)

	close(release)
	<-done
	assert.Equal(t, domain.StateSucceeded, f.wf.Snapshot().State)
	assert.Equal(t, 1, f.uploader.calls)
}

func TestWorkflow_ClearDuringUpload(t *testing.T) {
	f := newWorkflowFixture()
	started := make(chan struct{})
	release := make(chan struct{})
	var progress ProgressFunc
	f.uploader.fn = func(_ context.Context, _ *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome {
		progress = onProgress
		close(started)
		<-release
		onProgress(domain.NewUploadProgress(10, 10))
		return domain.Success(200)
	}

	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.wf.Upload(context.Background())
	}()
	<-started

	f.wf.Clear()
	assert.Equal(t, domain.StateEmpty, f.wf.Snapshot().State)
	assert.Equal(t, 0, f.previews.Live())

	// Still blocked until the old attempt resolves
	assert.ErrorIs(t, f.wf.Select(jpegAsset("b.jpg", 10)), domain.ErrUploadInFlight)

	close(release)
	<-done
	require.NotNil(t, progress)

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateEmpty, snap.State)
	assert.Nil(t, snap.Progress)
	assert.Empty(t, f.scheduler.delays)

	require.NoError(t, f.wf.Select(jpegAsset("b.jpg", 10)))
}

// Selecting a 2 MB JPEG, progress (500000,2000000) then (2000000,2000000),
// then a 201 response.
func TestWorkflow_ProgressScenario(t *testing.T) {
	f := newWorkflowFixture()
	f.uploader.fn = func(_ context.Context, asset *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome {
		onProgress(domain.NewUploadProgress(500_000, 2_000_000))
		onProgress(domain.NewUploadProgress(2_000_000, 2_000_000))
		return domain.Success(201)
	}

	var mu sync.Mutex
	var percents []int
	var states []domain.WorkflowState
	var versions []uint64
	f.wf.OnChange(func(s WorkflowSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
		states = append(states, s.State)
		if s.Progress != nil && s.State == domain.StateUploading {
			percents = append(percents, s.Progress.PercentComplete)
		}
	})

	require.NoError(t, f.wf.Select(jpegAsset("big.jpg", 2_000_000)))
	outcome, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 201, outcome.StatusCode)

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSucceeded, snap.State)
	assert.Nil(t, snap.Progress, "progress is cleared once the upload completes")

	f.scheduler.fire()
	assert.Equal(t, domain.StateEmpty, f.wf.Snapshot().State)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{25, 100}, percents)
	assert.Equal(t, domain.StateEmpty, states[len(states)-1])
	assert.IsIncreasing(t, versions)
}

func TestWorkflow_ProgressClearedOnFailure(t *testing.T) {
	f := newWorkflowFixture()
	f.uploader.fn = func(_ context.Context, asset *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome {
		onProgress(domain.NewUploadProgress(2_000_000, 2_000_000))
		return domain.Failure(&domain.HTTPStatusError{Code: 500, Status: "Internal Server Error"})
	}

	var mu sync.Mutex
	var lastUploading *domain.UploadProgress
	f.wf.OnChange(func(s WorkflowSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.State == domain.StateUploading && s.Progress != nil {
			p := *s.Progress
			lastUploading = &p
		}
	})

	require.NoError(t, f.wf.Select(jpegAsset("big.jpg", 2_000_000)))
	outcome, err := f.wf.Upload(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.OK())

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Nil(t, snap.Progress)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, lastUploading)
	assert.Equal(t, 100, lastUploading.PercentComplete)
}

func TestWorkflow_CaptureSelects(t *testing.T) {
	f := newWorkflowFixture()

	require.NoError(t, f.wf.Capture(context.Background()))

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSelected, snap.State)
	assert.Equal(t, domain.SourceCamera, snap.Asset.Source)
	assert.False(t, snap.Capturing)
	assert.Equal(t, 1, f.camera.Stream.Stops())
}

// A device with no video input reports NoCameraFound and stays Empty
func TestWorkflow_CaptureNoCamera(t *testing.T) {
	f := newWorkflowFixture()
	stream := &mocks.MockStream{}
	f.camera.Stream = stream
	f.camera.OpenErr = domain.ErrNoCameraFound

	err := f.wf.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCameraFound)

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateEmpty, snap.State)
	assert.Nil(t, snap.Asset)
	assert.ErrorIs(t, snap.Err, domain.ErrNoCameraFound)
	assert.Contains(t, snap.Message, "gallery")
	assert.Equal(t, 1, stream.Stops())
	assert.Equal(t, 0, f.previews.Live())
}

func TestWorkflow_CaptureFailureKeepsSelection(t *testing.T) {
	f := newWorkflowFixture()
	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	f.camera.IsSupported = false
	err := f.wf.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnsupportedDevice)

	snap := f.wf.Snapshot()
	assert.Equal(t, domain.StateSelected, snap.State)
	assert.Equal(t, "a.jpg", snap.Asset.Name)
}

func TestWorkflow_CaptureWithoutCamera(t *testing.T) {
	wf := NewWorkflow(nil, &fakeUploader{}, mocks.NewMockPreviewStore())

	err := wf.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnsupportedDevice)
	assert.ErrorIs(t, wf.Snapshot().Err, domain.ErrUnsupportedDevice)
}

func TestWorkflow_Close(t *testing.T) {
	f := newWorkflowFixture()
	require.NoError(t, f.wf.Select(jpegAsset("a.jpg", 10)))

	f.wf.Close()
	f.wf.Close()

	assert.Equal(t, 0, f.previews.Live())
	assert.Equal(t, 1, f.previews.ReleaseCount("preview-1"))
	assert.ErrorIs(t, f.wf.Select(jpegAsset("b.jpg", 10)), domain.ErrInvalidTransition)
	_, err := f.wf.Upload(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestWorkflow_RealTimerAutoReset(t *testing.T) {
	previews := mocks.NewMockPreviewStore()
	wf := NewWorkflow(nil, &fakeUploader{}, previews, WithResetDelay(10*time.Millisecond))

	require.NoError(t, wf.Select(jpegAsset("a.jpg", 10)))
	_, err := wf.Upload(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return wf.Snapshot().State == domain.StateEmpty
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, previews.Live())
}
