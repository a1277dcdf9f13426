package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/adapters/gallery"
	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/services"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

const (
	msgUploading     = "Uploading your pup's photo..."
	msgUploadSuccess = "Upload Successful! Good job tracking your pup's health!"
	msgUploadFailed  = "Oops! Something went wrong"
)

var (
	uploadFromClipboard bool
	uploadList          bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a photo from your gallery",
	Long: `Upload an existing photo of your dog's poop.

Without a file argument an interactive picker lists the images in your
gallery directory (gallery_dir in the config).

Accepted: JPEG, PNG or WebP up to 10MB.

Examples:
  pupsnap upload ~/Pictures/walk.jpg
  pupsnap upload --clipboard
  pupsnap upload --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadFromClipboard, "clipboard", "c", false, "Take the file path from the clipboard")
	uploadCmd.Flags().BoolVarP(&uploadList, "list", "l", false, "List gallery images instead of uploading")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	out := cmd.OutOrStdout()

	if uploadList {
		return listGallery(out, appConfig.GalleryDir)
	}

	var path string
	switch {
	case len(args) == 1:
		path = args[0]
	case uploadFromClipboard:
		p, err := clipboardPath()
		if err != nil {
			return err
		}
		path = p
	default:
		p, err := pickFromGallery(appConfig.GalleryDir)
		if errors.Is(err, errCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		path = p
	}

	asset, err := loadAsset(path)
	if err != nil {
		fmt.Fprintln(out, ui.FormatError(describeError(err)))
		return err
	}

	if err := workflow.Select(asset); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.FormatPaw("Selected "+ui.FormatAsset(asset)))

	workflow.OnChange(progressPrinter(out))
	return uploadSelected(ctx, workflow, out)
}

// progressPrinter redraws a single progress line while uploading
func progressPrinter(out io.Writer) func(services.WorkflowSnapshot) {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	return func(s services.WorkflowSnapshot) {
		if s.State != domain.StateUploading || s.Progress == nil {
			return
		}
		fmt.Fprintf(out, "\r%s %s", bar.ViewAs(s.Progress.Fraction()), ui.FormatProgress(*s.Progress))
	}
}

// uploadSelected uploads the workflow's current asset and reports the outcome
func uploadSelected(ctx context.Context, wf *services.Workflow, out io.Writer) error {
	fmt.Fprintln(out, ui.FormatInfo(msgUploading))

	outcome, err := wf.Upload(ctx)
	fmt.Fprintln(out)
	if err != nil {
		fmt.Fprintln(out, ui.FormatError(describeError(err)))
		return err
	}

	if !outcome.OK() {
		fmt.Fprintln(out, ui.FormatError(msgUploadFailed))
		fmt.Fprintln(out, "  "+domain.UserMessage(outcome.Err))
		return fmt.Errorf("upload failed: %s", outcome.Reason)
	}

	fmt.Fprintln(out, ui.FormatSuccess(msgUploadSuccess))
	return nil
}

func listGallery(out io.Writer, dir string) error {
	images, err := gallery.ListImages(dir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Fprintln(out, ui.FormatWarning("No images in "+dir))
		return nil
	}

	table := ui.NewTable(
		ui.Column{Header: "NAME"},
		ui.Column{Header: "SIZE", Right: true},
		ui.Column{Header: "MODIFIED"},
	)
	for _, img := range images {
		table.AddRow(img.Name, ui.FormatBytes(img.Size), img.ModTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprint(out, table.Render())
	return nil
}
