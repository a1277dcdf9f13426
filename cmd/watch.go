package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/adapters/gallery"
	"github.com/kamal-hamza/pupsnap/internal/log"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

var watchQuiet bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload every photo dropped into a folder",
	Long: `Watch a folder and upload each new image that appears in it.

Drop or save photos into the folder (for example from your phone's sync
app) and pupsnap uploads them one at a time. Files are picked up once they
stop changing for watch_debounce_ms milliseconds.

Defaults to the gallery directory. Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "Only print failures")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	out := cmd.OutOrStdout()
	if watchQuiet {
		out = io.Discard
	}

	dir := appConfig.GalleryDir
	if len(args) == 1 {
		dir = cleanPath(args[0])
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Fprintln(out, ui.FormatPaw("Watching for photos..."))
	fmt.Fprintln(out, ui.FormatMuted("Folder: "+dir))
	fmt.Fprintln(out, ui.FormatMuted("Press Ctrl+C to stop"))
	fmt.Fprintln(out)

	workflow.OnChange(progressPrinter(out))

	d := newDropQueue(time.Duration(appConfig.WatchDebounceMS) * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case path := <-d.ready:
				uploadDropped(ctx, path, out, cmd.ErrOrStderr())
			case <-d.done:
				return
			}
		}
	}()
	// The consumer uses the shared workflow, so it must be gone before shutdown
	defer wg.Wait()
	defer d.stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !gallery.IsImagePath(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				d.touch(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)

		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.FormatMuted("Stopped watching"))
			return nil
		}
	}
}

// uploadDropped runs one file through the workflow and clears it afterwards
func uploadDropped(ctx context.Context, path string, out, errOut io.Writer) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	asset, err := gallery.LoadFile(path)
	if err != nil {
		fmt.Fprintln(errOut, ui.FormatError(path+": "+describeError(err)))
		return
	}

	// Leave nothing from the previous file behind
	workflow.Clear()
	if err := workflow.Select(asset); err != nil {
		fmt.Fprintln(errOut, ui.FormatError(path+": "+describeError(err)))
		return
	}

	fmt.Fprintln(out, ui.FormatInfo("New photo: "+ui.FormatAsset(asset)))
	if err := uploadSelected(ctx, workflow, out); err != nil {
		log.Warn("watch upload failed", "path", path, "error", err)
		fmt.Fprintln(errOut, ui.FormatError(path+": "+err.Error()))
	}
	workflow.Clear()
}

// dropQueue debounces file events per path and emits each settled path once.
// Settled paths wait in their timer goroutine until the consumer takes them,
// so a slow consumer never holds up touch or stop.
type dropQueue struct {
	delay time.Duration
	ready chan string
	done  chan struct{}

	mu     sync.Mutex
	seq    uint64
	timers map[string]pendingDrop
	closed bool
}

type pendingDrop struct {
	timer *time.Timer
	id    uint64
}

func newDropQueue(delay time.Duration) *dropQueue {
	return &dropQueue{
		delay:  delay,
		ready:  make(chan string, 16),
		done:   make(chan struct{}),
		timers: make(map[string]pendingDrop),
	}
}

// touch restarts the settle timer for path
func (q *dropQueue) touch(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	if p, ok := q.timers[path]; ok {
		p.timer.Stop()
	}
	q.seq++
	id := q.seq
	q.timers[path] = pendingDrop{
		timer: time.AfterFunc(q.delay, func() { q.fire(path, id) }),
		id:    id,
	}
}

func (q *dropQueue) fire(path string, id uint64) {
	q.mu.Lock()
	if p, ok := q.timers[path]; q.closed || !ok || p.id != id {
		// Stopped, or a later touch replaced this timer
		q.mu.Unlock()
		return
	}
	delete(q.timers, path)
	q.mu.Unlock()

	select {
	case q.ready <- path:
	case <-q.done:
	}
}

// stop cancels pending timers and releases any fire waiting on the consumer
func (q *dropQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for _, p := range q.timers {
		p.timer.Stop()
	}
	close(q.done)
}
