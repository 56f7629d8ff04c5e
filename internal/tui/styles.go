// Package tui implements the storefront terminal user interface using Bubble Tea.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette - black, bone and blood red
var (
	colorBone      = lipgloss.Color("#EDE6DA")
	colorAsh       = lipgloss.Color("#6E6A64")
	colorBlood     = lipgloss.Color("#C1121F")
	colorEmber     = lipgloss.Color("#FF5F1F")
	colorSteel     = lipgloss.Color("#8D99AE")
	colorHighlight = lipgloss.Color("#FF3B3B")
	colorSuccess   = lipgloss.Color("#4CAF50")
	colorWarning   = lipgloss.Color("#FFC107")
	colorError     = lipgloss.Color("#F44336")
	colorMuted     = lipgloss.Color("#9E9E9E")
)

// Styles holds all the lipgloss styles for the TUI.
type Styles struct {
	// App container
	App lipgloss.Style

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	Tab         lipgloss.Style
	TabActive   lipgloss.Style

	// List styles
	ListTitle lipgloss.Style

	// Product details
	ProductName        lipgloss.Style
	ProductPrice       lipgloss.Style
	ProductDescription lipgloss.Style
	ProductAttribute   lipgloss.Style
	ProductInStock     lipgloss.Style
	ProductOutOfStock  lipgloss.Style

	// Forms and summaries
	FormTitle lipgloss.Style
	Summary   lipgloss.Style
	Total     lipgloss.Style
	Step      lipgloss.Style

	// Notifications
	Notice      lipgloss.Style
	NoticeError lipgloss.Style

	// General
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Box       lipgloss.Style
	HelpBar   lipgloss.Style
}

// DefaultStyles returns the default TUI styles.
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Padding(1, 2),

		Header: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorAsh).
			MarginBottom(1).
			Padding(0, 1),

		HeaderTitle: lipgloss.NewStyle().
			Foreground(colorBlood).
			Bold(true),

		Tab: lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Foreground(colorBone).
			Background(colorBlood).
			Bold(true).
			Padding(0, 1),

		ListTitle: lipgloss.NewStyle().
			Foreground(colorBone).
			Background(colorBlood).
			Bold(true).
			Padding(0, 1),

		ProductName: lipgloss.NewStyle().
			Foreground(colorBone).
			Bold(true).
			MarginBottom(1),

		ProductPrice: lipgloss.NewStyle().
			Foreground(colorEmber).
			Bold(true),

		ProductDescription: lipgloss.NewStyle().
			Foreground(colorBone).
			MarginTop(1).
			MarginBottom(1),

		ProductAttribute: lipgloss.NewStyle().
			Foreground(colorSteel),

		ProductInStock: lipgloss.NewStyle().
			Foreground(colorSuccess),

		ProductOutOfStock: lipgloss.NewStyle().
			Foreground(colorError),

		FormTitle: lipgloss.NewStyle().
			Foreground(colorBlood).
			Bold(true).
			MarginBottom(1),

		Summary: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorAsh).
			Padding(0, 2).
			MarginTop(1),

		Total: lipgloss.NewStyle().
			Foreground(colorEmber).
			Bold(true),

		Step: lipgloss.NewStyle().
			Foreground(colorSteel).
			Italic(true),

		Notice: lipgloss.NewStyle().
			Foreground(colorBone).
			Background(colorAsh).
			Padding(0, 1),

		NoticeError: lipgloss.NewStyle().
			Foreground(colorBone).
			Background(colorBlood).
			Bold(true).
			Padding(0, 1),

		Subtle: lipgloss.NewStyle().
			Foreground(colorMuted),

		Highlight: lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(colorSuccess),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorAsh).
			Padding(1, 2),

		HelpBar: lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1),
	}
}

// warningStyle is used for stock warnings.
var warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
