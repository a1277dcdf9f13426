package camera

import (
	"fmt"
	"path/filepath"
	"sort"
)

// DevicePath returns the linux device node for a camera index
func DevicePath(device int) string {
	return fmt.Sprintf("/dev/video%d", device)
}

// DevicePaths lists the video device nodes present right now
func DevicePaths() []string {
	return globDevices("/dev")
}

func globDevices(root string) []string {
	matches, err := filepath.Glob(filepath.Join(root, "video*"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}
