package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/adapters/camera"
	"github.com/kamal-hamza/pupsnap/internal/adapters/gallery"
	"github.com/kamal-hamza/pupsnap/pkg/config"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of your pupsnap setup",
	Long: `Diagnose issues with your pupsnap setup.

Checks for:
  - Data directory and configuration file
  - Upload endpoint for the active mode
  - Camera devices
  - Gallery directory
  - Clipboard and image viewer support
  - Install status`,
	Args: cobra.NoArgs,
	Run:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, ui.FormatTitle(ui.IconPaw+" pupsnap doctor"))

	// 1. Local files
	checkStep(out, "Data Directory", func() error {
		if !appDirs.Exists() {
			return fmt.Errorf("not found at %s", appDirs.RootPath)
		}
		return nil
	})

	checkStep(out, "Configuration File", func() error {
		if _, err := os.Stat(appDirs.ConfigPath); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s (defaults in use, run 'pupsnap config init')", appDirs.ConfigPath)
		}
		return nil
	})

	// 2. Upload target
	checkStep(out, fmt.Sprintf("Upload Endpoint (%s)", endpoint.Mode), func() error {
		if endpoint.URL == config.DefaultUploadEndpoint && endpoint.Mode != config.ModeProduction {
			return fmt.Errorf("unknown mode %q, using %s", endpoint.Mode, endpoint.URL)
		}
		return nil
	})

	// 3. Capture and gallery
	checkStep(out, "Camera", func() error {
		if !captureService.Supported() {
			return fmt.Errorf("no camera available, use 'pupsnap upload' instead")
		}
		if devices := camera.DevicePaths(); len(devices) > 0 {
			fmt.Fprintf(out, "    %s\n", ui.StyleMuted.Render(fmt.Sprintf("%d device(s), using #%d", len(devices), appConfig.CameraDevice)))
		}
		return nil
	})

	checkStep(out, "Gallery Directory", func() error {
		images, err := gallery.ListImages(appConfig.GalleryDir)
		if err != nil {
			return fmt.Errorf("cannot read %s", appConfig.GalleryDir)
		}
		fmt.Fprintf(out, "    %s\n", ui.StyleMuted.Render(fmt.Sprintf("%d image(s) in %s", len(images), appConfig.GalleryDir)))
		return nil
	})

	// 4. Desktop integration
	checkStep(out, "Clipboard", func() error {
		if clipboard.Unsupported {
			return fmt.Errorf("no clipboard utility found (install xclip, xsel or wl-clipboard)")
		}
		return nil
	})

	checkStep(out, "Image Viewer", func() error {
		name := fileOpener.Command("").Args[0]
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found in PATH (set image_viewer in the config)", name)
		}
		return nil
	})

	checkStep(out, "Installed", func() error {
		if !binInstaller.Installed() {
			return fmt.Errorf("not installed, run 'pupsnap install'")
		}
		if !binInstaller.OnPath() {
			return fmt.Errorf("%s is not on your PATH", binInstaller.Dir())
		}
		return nil
	})
}

// checkStep runs a check function and prints the result nicely
func checkStep(out io.Writer, name string, check func() error) {
	err := check()
	if err == nil {
		fmt.Fprintf(out, "%s %s\n", ui.StyleSuccess.Render(ui.IconSuccess), name)
	} else {
		fmt.Fprintf(out, "%s %s\n", ui.StyleError.Render(ui.IconError), name)
		fmt.Fprintf(out, "    %s\n", ui.StyleMuted.Render(err.Error()))
	}
}
