package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/core/services"
	"github.com/kamal-hamza/pupsnap/pkg/ui"
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Launch the interactive dashboard (alias: dash)",
	Long: `Launch a full-screen dashboard for taking and uploading photos.

Keyboard Shortcuts:
  Photo:
    c           Take a photo with the camera
    f           Pick a photo from the gallery
    v           Use the file path on the clipboard
    p           Open the preview in the image viewer
    x           Clear the current photo

  Upload:
    u / Enter   Upload the current photo (retries after a failure)

  Install:
    i           Install pupsnap onto your PATH
    d           Dismiss the install prompt

  General:
    ?           Toggle help
    q           Quit dashboard
    Ctrl+C      Force quit`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	var prompt *services.InstallPrompt
	if appConfig.ShowInstallPrompt {
		prompt = installPrompt
		prompt.Start()
	}

	m := newDashboardModel(ctx, workflow, prompt, appConfig.GalleryDir)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running dashboard: %w", err)
	}

	return nil
}

// Dashboard view modes
type viewMode int

const (
	modeMain viewMode = iota
	modePicker
)

const (
	messageTTL   = 3 * time.Second
	installCheck = 500 * time.Millisecond
)

// Dashboard model
type dashboardModel struct {
	ctx    context.Context
	wf     *services.Workflow
	prompt *services.InstallPrompt // nil when the prompt is disabled
	feed   <-chan services.WorkflowSnapshot
	snap   services.WorkflowSnapshot

	mode     viewMode
	picker   filepicker.Model
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap

	width  int
	height int
	ready  bool

	message       string // Status message
	messageStyle  lipgloss.Style
	messageExpiry time.Time

	showInstall  bool
	instructions []string
}

// Key bindings
type keyMap struct {
	Capture key.Binding
	Pick    key.Binding
	Paste   key.Binding
	Upload  key.Binding
	Clear   key.Binding
	Open    key.Binding
	Install key.Binding
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
	Back    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Capture, k.Pick, k.Upload, k.Clear, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Capture, k.Pick, k.Paste, k.Open},
		{k.Upload, k.Clear},
		{k.Install, k.Dismiss, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Capture: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "take photo"),
	),
	Pick: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "pick from gallery"),
	),
	Paste: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "path from clipboard"),
	),
	Upload: key.NewBinding(
		key.WithKeys("u", "enter"),
		key.WithHelp("u/enter", "upload"),
	),
	Clear: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear"),
	),
	Open: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "open preview"),
	),
	Install: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "install"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "dismiss prompt"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
}

func newDashboardModel(ctx context.Context, wf *services.Workflow, prompt *services.InstallPrompt, galleryDir string) dashboardModel {
	fp := filepicker.New()
	fp.CurrentDirectory = galleryDir
	fp.AllowedTypes = []string{".jpg", ".jpeg", ".png", ".webp"}
	fp.AutoHeight = false
	fp.Height = 12

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(ui.ColorPrimary)),
	)

	return dashboardModel{
		ctx:      ctx,
		wf:       wf,
		prompt:   prompt,
		feed:     watchWorkflow(wf),
		snap:     wf.Snapshot(),
		mode:     modeMain,
		picker:   fp,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     keys,
		ready:    false,
	}
}

// watchWorkflow forwards snapshots into a channel holding only the latest one
func watchWorkflow(wf *services.Workflow) <-chan services.WorkflowSnapshot {
	feed := make(chan services.WorkflowSnapshot, 1)
	wf.OnChange(func(s services.WorkflowSnapshot) {
		select {
		case <-feed:
		default:
		}
		select {
		case feed <- s:
		default:
		}
	})
	return feed
}

func (m dashboardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForSnapshot(m.feed), m.spinner.Tick}
	if m.prompt != nil {
		cmds = append(cmds, checkInstall())
	}
	return tea.Batch(cmds...)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

		barWidth := msg.Width - 30
		if barWidth > 60 {
			barWidth = 60
		}
		if barWidth < 10 {
			barWidth = 10
		}
		m.progress.Width = barWidth
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modePicker:
			return m.updatePicker(msg)
		case modeMain:
			return m.updateMain(msg)
		}

	case snapshotMsg:
		m.snap = services.WorkflowSnapshot(msg)
		return m, waitForSnapshot(m.feed)

	case installTickMsg:
		if m.prompt == nil {
			return m, nil
		}
		m.showInstall = m.prompt.ShouldShow()
		if m.showInstall {
			m.instructions = m.prompt.ManualInstructions()
		}
		if m.prompt.Installed() {
			return m, nil
		}
		return m, checkInstall()

	case statusMsg:
		m.message = msg.message
		m.messageStyle = msg.style
		m.messageExpiry = time.Now().Add(messageTTL)
		return m, tea.Tick(messageTTL, func(time.Time) tea.Msg { return clearMessageMsg{} })

	case clearMessageMsg:
		if !time.Now().Before(m.messageExpiry) {
			m.message = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// The picker loads directories asynchronously
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m dashboardModel) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Capture):
		return m, m.capturePhoto()

	case key.Matches(msg, m.keys.Pick):
		m.mode = modePicker
		return m, m.picker.Init()

	case key.Matches(msg, m.keys.Paste):
		return m, m.selectFromClipboard()

	case key.Matches(msg, m.keys.Upload):
		return m, m.uploadPhoto()

	case key.Matches(msg, m.keys.Clear):
		m.wf.Clear()
		m.snap = m.wf.Snapshot()

	case key.Matches(msg, m.keys.Open):
		return m, m.openPreviewCmd(m.snap.Preview)

	case key.Matches(msg, m.keys.Install):
		if m.showInstall {
			return m, m.acceptInstall()
		}

	case key.Matches(msg, m.keys.Dismiss):
		if m.prompt != nil && m.showInstall {
			m.prompt.Dismiss()
			m.showInstall = false
		}
	}

	return m, nil
}

func (m dashboardModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.mode = modeMain
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.mode = modeMain
		return m, tea.Batch(cmd, m.selectPath(path))
	}

	return m, cmd
}

func (m dashboardModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var body string
	switch m.mode {
	case modePicker:
		body = m.viewPicker()
	default:
		body = m.viewWorkflow()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		"",
		body,
		m.renderInstallBanner(),
		m.renderFooter(),
	)
}

func (m dashboardModel) viewWorkflow() string {
	var s strings.Builder
	snap := m.snap

	s.WriteString(ui.StyleMuted.Render("State  ") + ui.StateBadge(snap.State) + "\n")
	s.WriteString(ui.StyleMuted.Render("Photo  ") + ui.FormatAsset(snap.Asset) + "\n")
	if !snap.Preview.IsZero() {
		s.WriteString(ui.StyleMuted.Render("View   ") + ui.StyleMuted.Render(shortenHome(snap.Preview.Path)+"  [p] open") + "\n")
	}
	s.WriteString("\n")

	switch {
	case snap.Capturing:
		s.WriteString(m.spinner.View() + " " + ui.IconCamera + " Taking photo...")

	case snap.State == domain.StateUploading:
		s.WriteString(m.spinner.View() + " " + msgUploading + "\n\n")
		fraction := 0.0
		if snap.Progress != nil {
			fraction = snap.Progress.Fraction()
		}
		s.WriteString(m.progress.ViewAs(fraction))
		if snap.Progress != nil {
			s.WriteString("  " + ui.FormatProgress(*snap.Progress))
		}

	case snap.State == domain.StateSucceeded:
		s.WriteString(ui.FormatSuccess(msgUploadSuccess))

	case snap.State == domain.StateFailed:
		s.WriteString(ui.FormatError(msgUploadFailed) + "\n")
		s.WriteString("  " + snap.Message + "\n\n")
		s.WriteString(ui.StyleMuted.Render("Press u to try again or x to start over"))

	case snap.State == domain.StateSelected:
		s.WriteString(ui.StyleMuted.Render("Press u to upload"))

	default:
		s.WriteString(ui.StyleMuted.Render("Press c to take a photo or f to pick one from your gallery"))
	}

	return ui.StyleBox.Width(m.boxWidth()).Render(s.String())
}

func (m dashboardModel) viewPicker() string {
	title := ui.StylePrimary.Render(ui.IconPaw + " Pick a photo")
	dir := ui.StyleMuted.Render(shortenHome(m.picker.CurrentDirectory))

	return ui.StyleBox.Width(m.boxWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, dir, "", m.picker.View()),
	)
}

func (m dashboardModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(ui.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	statsStyle := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Align(lipgloss.Right)

	title := titleStyle.Render(ui.IconPaw + " pupsnap")
	stats := statsStyle.Render(endpoint.Mode + "  " + endpoint.Host())

	spacer := m.width - lipgloss.Width(title) - lipgloss.Width(stats)
	if spacer < 0 {
		spacer = 0
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", spacer),
		stats,
	)
}

func (m dashboardModel) renderInstallBanner() string {
	if !m.showInstall {
		return ""
	}

	var s strings.Builder
	s.WriteString(ui.StyleAccent.Render(ui.IconInstall + " Install pupsnap so you can run it from anywhere"))
	s.WriteString("\n")
	s.WriteString(ui.StyleMuted.Render("[i] install  [d] not now"))
	for i, step := range m.instructions {
		s.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
	}

	return ui.StyleBox.
		BorderForeground(ui.ColorAccent).
		Width(m.boxWidth()).
		Render(s.String())
}

func (m dashboardModel) renderFooter() string {
	var statusLine string
	if m.message != "" && time.Now().Before(m.messageExpiry) {
		statusLine = m.messageStyle.Render(m.message)
	} else {
		statusLine = ui.StyleMuted.Render("Ready")
	}

	hint := m.help.View(m.keys)
	if m.mode == modePicker {
		hint = ui.StyleMuted.Render("[↑↓] Navigate  [enter] Select  [←/h] Up a folder  [esc] Back")
	}

	footerStyle := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.ColorMuted).
		Padding(0, 1)

	return footerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, statusLine, hint))
}

func (m dashboardModel) boxWidth() int {
	w := m.width - 4
	if w > 100 {
		w = 100
	}
	if w < 40 {
		w = 40
	}
	return w
}

func shortenHome(path string) string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return strings.Replace(path, home, "~", 1)
	}
	return path
}

// Messages

type statusMsg struct {
	message string
	style   lipgloss.Style
}

type clearMessageMsg struct{}

type snapshotMsg services.WorkflowSnapshot

type installTickMsg struct{}

func errorStatus(err error) statusMsg {
	return statusMsg{message: describeError(err), style: ui.StyleError}
}

// Commands

func waitForSnapshot(feed <-chan services.WorkflowSnapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-feed
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func checkInstall() tea.Cmd {
	return tea.Tick(installCheck, func(time.Time) tea.Msg { return installTickMsg{} })
}

func (m dashboardModel) capturePhoto() tea.Cmd {
	wf, ctx := m.wf, m.ctx
	return func() tea.Msg {
		if err := wf.Capture(ctx); err != nil {
			return errorStatus(err)
		}
		return statusMsg{
			message: "Captured " + ui.FormatAsset(wf.Snapshot().Asset),
			style:   ui.StyleSuccess,
		}
	}
}

func (m dashboardModel) selectPath(path string) tea.Cmd {
	wf := m.wf
	return func() tea.Msg {
		asset, err := loadAsset(path)
		if err != nil {
			return errorStatus(err)
		}
		if err := wf.Select(asset); err != nil {
			return errorStatus(err)
		}
		return statusMsg{message: "Selected " + asset.Name, style: ui.StyleInfo}
	}
}

func (m dashboardModel) selectFromClipboard() tea.Cmd {
	return func() tea.Msg {
		path, err := clipboardPath()
		if err != nil {
			return statusMsg{message: err.Error(), style: ui.StyleWarning}
		}
		return m.selectPath(path)()
	}
}

func (m dashboardModel) uploadPhoto() tea.Cmd {
	wf, ctx := m.wf, m.ctx
	return func() tea.Msg {
		outcome, err := wf.Upload(ctx)
		if err != nil {
			return errorStatus(err)
		}
		if !outcome.OK() {
			return statusMsg{message: msgUploadFailed, style: ui.StyleError}
		}
		return statusMsg{message: msgUploadSuccess, style: ui.StyleSuccess}
	}
}

func (m dashboardModel) openPreviewCmd(h domain.PreviewHandle) tea.Cmd {
	return func() tea.Msg {
		if err := openPreview(h); err != nil {
			return statusMsg{message: err.Error(), style: ui.StyleWarning}
		}
		return statusMsg{message: "Opened preview", style: ui.StyleSuccess}
	}
}

func (m dashboardModel) acceptInstall() tea.Cmd {
	prompt, ctx := m.prompt, m.ctx
	return func() tea.Msg {
		if err := prompt.Accept(ctx); err != nil {
			return statusMsg{message: err.Error(), style: ui.StyleError}
		}
		return statusMsg{message: "Installed! Run pupsnap from any terminal.", style: ui.StyleSuccess}
	}
}
