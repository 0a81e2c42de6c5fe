// Package output renders load-test results for the console and as JSON.
package output

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme defines the colors used for report elements.
type ColorScheme struct {
	Title   *color.Color
	Label   *color.Color
	Value   *color.Color
	Pass    *color.Color
	Fail    *color.Color
	Verdict *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:   color.New(color.FgCyan, color.Bold),
		Label:   color.New(color.FgYellow),
		Value:   color.New(color.FgWhite),
		Pass:    color.New(color.FgGreen),
		Fail:    color.New(color.FgRed),
		Verdict: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Title.DisableColor()
	scheme.Label.DisableColor()
	scheme.Value.DisableColor()
	scheme.Pass.DisableColor()
	scheme.Fail.DisableColor()
	scheme.Verdict.DisableColor()
	return scheme
}

// PassIcon returns a checkmark, colored when enabled.
func PassIcon(noColor bool) string {
	if noColor {
		return "✓"
	}
	return color.New(color.FgGreen).Sprint("✓")
}

// FailIcon returns an X, colored when enabled.
func FailIcon(noColor bool) string {
	if noColor {
		return "✗"
	}
	return color.New(color.FgRed).Sprint("✗")
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
