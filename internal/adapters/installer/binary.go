// Package installer places the pupsnap binary on PATH and reports when that happened.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// BinaryInstaller copies the running executable into an install directory
type BinaryInstaller struct {
	dir        string
	name       string
	executable func() (string, error)
}

func NewBinaryInstaller(dir string) *BinaryInstaller {
	name := "pupsnap"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return &BinaryInstaller{
		dir:        dir,
		name:       name,
		executable: os.Executable,
	}
}

// Target is the path the binary is installed to
func (i *BinaryInstaller) Target() string {
	return filepath.Join(i.dir, i.name)
}

// Dir is the install directory
func (i *BinaryInstaller) Dir() string {
	return i.dir
}

// Installed reports whether the target exists, or the running binary is the target
func (i *BinaryInstaller) Installed() bool {
	if i.dir == "" {
		return false
	}
	if exe, err := i.executable(); err == nil && samePath(exe, i.Target()) {
		return true
	}
	info, err := os.Stat(i.Target())
	return err == nil && !info.IsDir()
}

// Install copies the executable via a temp file and renames it into place
func (i *BinaryInstaller) Install(ctx context.Context) error {
	if i.dir == "" {
		return fmt.Errorf("no install directory configured")
	}

	src, err := i.executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if samePath(src, i.Target()) {
		return nil
	}

	if err := os.MkdirAll(i.dir, 0755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open executable: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(i.dir, ".pupsnap-install-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: in}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to copy executable: %w", err)
	}
	if err := tmp.Chmod(0755); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write executable: %w", err)
	}

	if err := os.Rename(tmpName, i.Target()); err != nil {
		return fmt.Errorf("failed to move executable into place: %w", err)
	}
	return nil
}

// OnPath reports whether the install directory is listed in PATH
func (i *BinaryInstaller) OnPath() bool {
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if samePath(dir, i.dir) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	ca, errA := filepath.Abs(a)
	cb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	if ra, err := filepath.EvalSymlinks(ca); err == nil {
		ca = ra
	}
	if rb, err := filepath.EvalSymlinks(cb); err == nil {
		cb = rb
	}
	return ca == cb
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
