package silog

import "github.com/charmbracelet/lipgloss"

// Style controls how a [Logger] renders its output.
//
// Use [DefaultStyle] for colored output on a terminal,
// or [PlainStyle] for output without ANSI styling
// (e.g. when writing to a file or a pipe).
type Style struct {
	// LevelLabels holds the short label rendered for each log level,
	// e.g. "INF", "WRN".
	LevelLabels ByLevel[lipgloss.Style]

	// Messages holds the style applied to the log message itself,
	// for each log level.
	Messages ByLevel[lipgloss.Style]

	// Key is the style applied to attribute keys.
	Key lipgloss.Style

	// Values holds per-key styles for attribute values.
	// Keys not present here use the default, unstyled rendering.
	Values map[string]lipgloss.Style

	// KeyValueDelimiter is rendered between an attribute's key and value.
	KeyValueDelimiter lipgloss.Style

	// PrefixDelimiter is rendered between a logger's prefix and its message.
	PrefixDelimiter lipgloss.Style

	// MultilinePrefix is rendered before each line of a multi-line
	// attribute value.
	MultilinePrefix lipgloss.Style
}

const (
	_colorGray   = lipgloss.Color("240")
	_colorBlue   = lipgloss.Color("33")
	_colorYellow = lipgloss.Color("214")
	_colorRed    = lipgloss.Color("160")
	_colorPink   = lipgloss.Color("198")
)

// DefaultStyle returns the style used for output to a terminal.
// Levels are colored, and keys are dimmed.
func DefaultStyle() *Style {
	bold := lipgloss.NewStyle().Bold(true)

	return &Style{
		LevelLabels: ByLevel[lipgloss.Style]{
			Debug: bold.Foreground(_colorGray).SetString("DBG"),
			Info:  bold.Foreground(_colorBlue).SetString("INF"),
			Warn:  bold.Foreground(_colorYellow).SetString("WRN"),
			Error: bold.Foreground(_colorRed).SetString("ERR"),
			Fatal: bold.Foreground(_colorPink).SetString("FTL"),
		},
		Messages: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle().Foreground(_colorGray),
			Info:  lipgloss.NewStyle(),
			Warn:  lipgloss.NewStyle(),
			Error: lipgloss.NewStyle(),
			Fatal: lipgloss.NewStyle(),
		},
		Key:               lipgloss.NewStyle().Foreground(_colorGray),
		Values:            make(map[string]lipgloss.Style),
		KeyValueDelimiter: lipgloss.NewStyle().SetString("="),
		PrefixDelimiter:   lipgloss.NewStyle().Foreground(_colorGray).SetString(": "),
		MultilinePrefix:   lipgloss.NewStyle().Foreground(_colorGray).SetString("| "),
	}
}

// PlainStyle returns a style with no ANSI styling applied,
// suitable for output that isn't a terminal.
func PlainStyle() *Style {
	return &Style{
		LevelLabels: ByLevel[lipgloss.Style]{
			Debug: lipgloss.NewStyle().SetString("DBG"),
			Info:  lipgloss.NewStyle().SetString("INF"),
			Warn:  lipgloss.NewStyle().SetString("WRN"),
			Error: lipgloss.NewStyle().SetString("ERR"),
			Fatal: lipgloss.NewStyle().SetString("FTL"),
		},
		Messages:          ByLevel[lipgloss.Style]{},
		Key:               lipgloss.NewStyle(),
		Values:            make(map[string]lipgloss.Style),
		KeyValueDelimiter: lipgloss.NewStyle().SetString("="),
		PrefixDelimiter:   lipgloss.NewStyle().SetString(": "),
		MultilinePrefix:   lipgloss.NewStyle().SetString("| "),
	}
}
