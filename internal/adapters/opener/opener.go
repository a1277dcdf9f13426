// Package opener launches external viewers for preview files.
package opener

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// SystemOpener opens files with a configured viewer or the OS default
type SystemOpener struct {
	viewer string
	start  func(cmd *exec.Cmd) error
}

// NewSystemOpener uses viewer when set, otherwise open/xdg-open/start
func NewSystemOpener(viewer string) *SystemOpener {
	return &SystemOpener{
		viewer: viewer,
		start:  func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// Command builds the command for path without running it
func (o *SystemOpener) Command(path string) *exec.Cmd {
	if o.viewer != "" {
		return exec.Command(o.viewer, path)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

// Open starts the viewer detached so pupsnap can exit while it stays open
func (o *SystemOpener) Open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := o.start(o.Command(path)); err != nil {
		if o.viewer != "" {
			return fmt.Errorf("failed to open '%s' with '%s': %w", path, o.viewer, err)
		}
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	return nil
}
