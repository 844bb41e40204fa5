package styles

import "github.com/charmbracelet/lipgloss"

// Color constants
const (
	ColorAccent     = "205" // Magenta - titles, headers
	ColorSuccess    = "171" // Purple - confirmations
	ColorError      = "196" // Red
	ColorWarning    = "214" // Orange
	ColorFaint      = "238" // Gray - borders, help text
	ColorCellNormal = "252" // Light Gray - cell text
	ColorSQLString  = "179" // Sand - string literals
)

var (
	Title, Success, Error, Warning, Faint, Separator lipgloss.Style
	TableHeader, TableCell, TableBorder, TableNull   lipgloss.Style
	SQLKeyword, SQLString                            lipgloss.Style
)

func init() {
	SetAccent(ColorAccent)
}

// SetAccent rebuilds the styles around a configured accent color. An empty
// color keeps the default.
func SetAccent(accent string) {
	if accent == "" {
		accent = ColorAccent
	}

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(accent))

	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSuccess)).
		Bold(true)

	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorError)).
		Bold(true)

	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorWarning))

	Faint = lipgloss.NewStyle().
		Faint(true)

	Separator = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorFaint))

	TableHeader = lipgloss.NewStyle().
		Foreground(lipgloss.Color(accent)).
		Bold(true)

	TableCell = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorCellNormal))

	TableBorder = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorFaint))

	TableNull = lipgloss.NewStyle().
		Faint(true).
		Italic(true)

	SQLKeyword = lipgloss.NewStyle().
		Foreground(lipgloss.Color(accent)).
		Bold(true)

	SQLString = lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSQLString))
}
