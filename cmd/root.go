package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/adapters/camera"
	"github.com/kamal-hamza/pupsnap/internal/adapters/installer"
	"github.com/kamal-hamza/pupsnap/internal/adapters/opener"
	"github.com/kamal-hamza/pupsnap/internal/adapters/preview"
	"github.com/kamal-hamza/pupsnap/internal/core/services"
	"github.com/kamal-hamza/pupsnap/internal/httpc"
	"github.com/kamal-hamza/pupsnap/internal/log"
	"github.com/kamal-hamza/pupsnap/pkg/appdir"
	"github.com/kamal-hamza/pupsnap/pkg/config"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

var (
	appDirs   *appdir.Dirs
	appConfig *config.Config
	endpoint  config.EndpointConfig

	// Services
	captureService *services.CaptureService
	uploadService  *services.UploadService
	workflow       *services.Workflow
	installPrompt  *services.InstallPrompt

	// Adapters
	previewStore  *preview.FileStore
	fileOpener    *opener.SystemOpener
	binInstaller  *installer.BinaryInstaller
	installSignal *installer.WatchSignals

	logCloser io.Closer

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "pupsnap",
	Short: "Snap and upload your dog's poop for health tracking",
	Long: ui.StyleHeader.Render("pupsnap") + " - pet health sample uploader\n\n" +
		"Take a photo with your camera or pick one from your gallery and send it\n" +
		"to the pet-health tracking service. Running pupsnap without a command\n" +
		"opens the interactive dashboard.",
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
	RunE:              runDashboard,
}

// Execute adds all child commands to the root command and runs it.
// Cleanup runs here because cobra skips post-run hooks when RunE fails.
func Execute() {
	err := rootCmd.Execute()
	if cerr := shutdownApp(); cerr != nil {
		fmt.Fprintln(os.Stderr, ui.FormatError("cleanup: "+cerr.Error()))
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp wires directories, config, logging and services
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	dirs, err := appdir.New()
	if err != nil {
		return fmt.Errorf("failed to resolve directories: %w", err)
	}
	if err := dirs.Initialize(); err != nil {
		return err
	}
	appDirs = dirs

	cfg, err := config.Load(appDirs.ConfigPath)
	if err != nil {
		return err
	}
	appConfig = cfg
	ui.SetTheme(appConfig.ColorTheme)

	if err := config.LoadEnvFile(appDirs.EnvPath); err != nil {
		return err
	}
	endpoint = config.Endpoint(appConfig.Mode)

	closer, err := log.InitFile(appDirs.LogPath, appConfig.LogLevel, endpoint.IsProduction())
	if err != nil {
		return err
	}
	logCloser = closer
	log.Info("starting", "command", cmd.Name(), "mode", endpoint.Mode, "endpoint", endpoint.URL)

	// Previews left over from a crash are useless now
	if n, err := appDirs.CleanPreviews(); err != nil {
		log.Warn("failed to clean previews", "error", err)
	} else if n > 0 {
		log.Debug("removed stale previews", "count", n)
	}

	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	previewStore = preview.NewFileStore(appDirs.PreviewPath)
	fileOpener = opener.NewSystemOpener(appConfig.ImageViewer)
	binInstaller = installer.NewBinaryInstaller(appConfig.InstallDir)
	installSignal = installer.NewWatchSignals(binInstaller)

	captureService = services.NewCaptureService(camera.NewGocvCamera(appConfig.CameraDevice), services.DefaultCaptureConfig())
	uploadService = services.NewUploadService(endpoint, httpc.NewClient(endpoint.Timeout), userAgent())
	workflow = services.NewWorkflow(captureService, uploadService, previewStore)
	installPrompt = services.NewInstallPrompt(installSignal, binInstaller)

	return nil
}

// shutdownApp releases everything initializeApp acquired. Safe to call
// more than once and before initializeApp ran.
func shutdownApp() error {
	var errs []error

	if workflow != nil {
		workflow.Close()
		workflow = nil
	}
	if installPrompt != nil {
		installPrompt.Stop()
		installPrompt = nil
	}
	if previewStore != nil {
		errs = append(errs, previewStore.ReleaseAll())
		previewStore = nil
	}
	if rootCancel != nil {
		rootCancel()
		rootCancel = nil
	}
	if logCloser != nil {
		errs = append(errs, logCloser.Close())
		logCloser = nil
	}

	return errors.Join(errs...)
}

// getContext returns the process context, cancelled on Ctrl+C
func getContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}
