package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/pkg/config"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the pupsnap configuration",
	Long: `Show or change the pupsnap configuration.

Without a subcommand the current settings and the resolved upload
endpoint are printed. The run mode can be overridden per process with
the PUPSNAP_ENV environment variable or the .env file next to the config.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), appDirs.ConfigPath)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.Save(appDirs.ConfigPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("Wrote "+appDirs.ConfigPath))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Example: `  pupsnap config set gallery_dir /srv/photos/walks
  pupsnap config set show_install_prompt false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := appConfig.Save(appDirs.ConfigPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess(fmt.Sprintf("%s = %s", args[0], args[1])))
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appDirs.ConfigPath

		// Create it so the editor has something to show
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := appConfig.Save(path); err != nil {
				return err
			}
		}

		fmt.Println(ui.FormatInfo("Opening config: " + path))

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		c := exec.Command(editor, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEditCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	pairs, err := appConfig.Values()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, ui.FormatTitle("Configuration"))
	for _, kv := range pairs {
		fmt.Fprintln(out, ui.RenderKeyValue(kv[0], kv[1]))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.FormatTitle("Upload Endpoint"))
	fmt.Fprintln(out, ui.RenderKeyValue("mode", endpoint.Mode))
	fmt.Fprintln(out, ui.RenderKeyValue("url", endpoint.URL))
	fmt.Fprintln(out, ui.RenderKeyValue("timeout", endpoint.Timeout.String()))
	fmt.Fprintln(out, ui.RenderKeyValue("max size", ui.FormatBytes(endpoint.MaxBytes)))
	fmt.Fprintln(out, ui.RenderKeyValue("modes", fmt.Sprint(config.Modes())))

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.FormatMuted("File: "+appDirs.ConfigPath))
	return nil
}
