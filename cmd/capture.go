package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

var (
	captureUpload bool
	captureOut    string
	captureOpen   bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a photo with the camera",
	Long: `Take a single photo with the rear (or configured) camera.

The camera is opened, given half a second to settle exposure and focus,
sampled once as JPEG and released again.

Examples:
  pupsnap capture --upload
  pupsnap capture --out sample.jpg --open`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().BoolVarP(&captureUpload, "upload", "u", false, "Upload the photo right away")
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "", "Also save the photo to this file")
	captureCmd.Flags().BoolVar(&captureOpen, "open", false, "Open the photo in the image viewer (saves it to the gallery unless --out is set)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, ui.FormatInfo(ui.IconCamera+" Taking photo..."))
	if err := workflow.Capture(ctx); err != nil {
		fmt.Fprintln(out, ui.FormatError(describeError(err)))
		return err
	}

	snap := workflow.Snapshot()
	fmt.Fprintln(out, ui.FormatSuccess("Captured "+ui.FormatAsset(snap.Asset)))

	// Previews are deleted on exit, so a photo to open has to be saved first
	if captureOpen && captureOut == "" {
		captureOut = filepath.Join(appConfig.GalleryDir, snap.Asset.Name)
	}

	if captureOut != "" {
		if err := os.MkdirAll(filepath.Dir(captureOut), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(captureOut, snap.Asset.Data, 0644); err != nil {
			return fmt.Errorf("failed to save photo: %w", err)
		}
		fmt.Fprintln(out, ui.FormatMuted("Saved to "+captureOut))
	}

	if captureOpen {
		if err := fileOpener.Open(ctx, captureOut); err != nil {
			fmt.Fprintln(out, ui.FormatWarning(err.Error()))
		}
	}

	if !captureUpload {
		return nil
	}

	workflow.OnChange(progressPrinter(out))
	return uploadSelected(ctx, workflow, out)
}

// openPreview shows the preview file in the configured viewer
func openPreview(h domain.PreviewHandle) error {
	if h.IsZero() {
		return fmt.Errorf("no preview available")
	}
	return fileOpener.Open(getContext(), h.Path)
}
