package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
)

var (
	// Terminal palette colors so the output follows the user's theme
	ColorSuccess = lipgloss.AdaptiveColor{Light: "2", Dark: "2"} // Green
	ColorError   = lipgloss.AdaptiveColor{Light: "1", Dark: "1"} // Red
	ColorPrimary = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "6", Dark: "6"} // Cyan
	ColorMuted   = lipgloss.AdaptiveColor{Light: "8", Dark: "8"} // Gray
	ColorWarning = lipgloss.AdaptiveColor{Light: "3", Dark: "3"} // Yellow
	ColorAccent  = lipgloss.AdaptiveColor{Light: "5", Dark: "13"}
	ColorDefault = lipgloss.AdaptiveColor{Light: "0", Dark: "7"}

	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StylePrimary lipgloss.Style
	StyleInfo    lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleAccent  lipgloss.Style

	StyleTitle       lipgloss.Style
	StyleHeader      lipgloss.Style
	StyleBold        lipgloss.Style
	StyleBox         lipgloss.Style
	StyleBadge       lipgloss.Style
	StyleTableHeader lipgloss.Style
	StyleTableRow    lipgloss.Style
	StyleTableBorder lipgloss.Style

	IconSuccess = "✔"
	IconError   = "✘"
	IconInfo    = "ℹ"
	IconWarning = "⚠"
	IconPaw     = "🐾"
	IconCamera  = "📷"
	IconUpload  = "⇪"
	IconInstall = "⤓"
)

func init() {
	SetTheme("auto")
}

// SetTheme applies "auto", "dark" or "light"
func SetTheme(theme string) {
	switch theme {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleAccent = lipgloss.NewStyle().Foreground(ColorAccent)

	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).MarginBottom(1)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleBold = lipgloss.NewStyle().Bold(true)
	StyleBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1)
	StyleBadge = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	StyleTableHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleTableRow = lipgloss.NewStyle().Foreground(ColorDefault)
	StyleTableBorder = lipgloss.NewStyle().Foreground(ColorMuted)
}

func FormatSuccess(msg string) string {
	return StyleSuccess.Render(IconSuccess + " " + msg)
}

func FormatError(msg string) string {
	return StyleError.Render(IconError + " " + msg)
}

func FormatInfo(msg string) string {
	return StyleInfo.Render(IconInfo + " " + msg)
}

func FormatWarning(msg string) string {
	return StyleWarning.Render(IconWarning + " " + msg)
}

// FormatPaw is used for the friendlier headline messages
func FormatPaw(msg string) string {
	return StylePrimary.Render(IconPaw + " " + msg)
}

func FormatTitle(title string) string {
	return StyleTitle.Render(title)
}

func FormatMuted(text string) string {
	return StyleMuted.Render(text)
}

func FormatBold(text string) string {
	return StyleBold.Render(text)
}

// StateBadge renders the workflow state as a colored label
func StateBadge(state domain.WorkflowState) string {
	var color lipgloss.TerminalColor
	switch state {
	case domain.StateSelected:
		color = ColorInfo
	case domain.StateUploading:
		color = ColorWarning
	case domain.StateSucceeded:
		color = ColorSuccess
	case domain.StateFailed:
		color = ColorError
	default:
		color = ColorMuted
	}
	return StyleBadge.Foreground(color).Render(state.String())
}

// FormatBytes prints a size with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatProgress prints a progress snapshot as text
func FormatProgress(p domain.UploadProgress) string {
	return fmt.Sprintf("%3d%%  %s / %s", p.PercentComplete, FormatBytes(p.BytesSent), FormatBytes(p.TotalBytes))
}

// FormatAsset prints an asset's one-line summary
func FormatAsset(a *domain.ImageAsset) string {
	if a == nil {
		return FormatMuted("no image selected")
	}
	return fmt.Sprintf("%s  %s  %s", StyleBold.Render(a.Name), FormatMuted(a.MIMEType), FormatMuted(FormatBytes(a.Size)))
}
