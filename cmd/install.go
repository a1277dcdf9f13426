package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/core/services"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install pupsnap onto your PATH",
	Long: `Copy the running pupsnap binary into install_dir so it can be started
from any terminal.

On Windows the folder still has to be added to your Path by hand; the
steps are printed after installing.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if binInstaller.Installed() {
		fmt.Fprintln(out, ui.FormatSuccess("pupsnap is already installed at "+binInstaller.Target()))
		printPathHint(out)
		return nil
	}

	// Read the manual steps before installing hides them
	steps := installPrompt.ManualInstructions()

	installPrompt.Start()
	fmt.Fprintln(out, ui.FormatInfo(ui.IconInstall+" Installing to "+binInstaller.Target()+"..."))

	if err := installPrompt.Accept(getContext()); err != nil {
		if errors.Is(err, services.ErrNoInstallOffer) {
			return fmt.Errorf("pupsnap cannot be installed right now")
		}
		fmt.Fprintln(out, ui.FormatError(err.Error()))
		return err
	}

	fmt.Fprintln(out, ui.FormatSuccess("Installed! Run pupsnap from any terminal."))
	printPathHint(out)

	if len(steps) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.FormatBold("To finish on this platform:"))
		fmt.Fprint(out, ui.RenderList(steps))
	}
	return nil
}

func printPathHint(out io.Writer) {
	if binInstaller.OnPath() {
		return
	}
	fmt.Fprintln(out, ui.FormatWarning(binInstaller.Dir()+" is not on your PATH"))
	fmt.Fprintln(out, ui.FormatMuted("  Add it to your shell profile, e.g. export PATH=\""+binInstaller.Dir()+":$PATH\""))
}
