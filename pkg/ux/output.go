// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders styled terminal output for the reqgraph CLI.
//
// A Printer writes to one destination. Whether it emits ANSI styling is
// decided once, from a ColorMode and whether the destination is a
// terminal, so redirected output is always plain text.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6B8791")
)

// ColorMode selects when styling is emitted.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// ColorEnabled reports whether mode enables styling for w. In auto mode
// styling is on only when w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type styleSet struct {
	title   lipgloss.Style
	bold    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	accent  lipgloss.Style
	box     lipgloss.Style
}

// Printer writes styled lines to a destination.
//
// Thread Safety: not safe for concurrent use.
type Printer struct {
	w      io.Writer
	color  bool
	styles styleSet
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer, mode ColorMode) *Printer {
	p := &Printer{w: w, color: ColorEnabled(w, mode)}
	if !p.color {
		return p
	}
	r := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.TrueColor))
	p.styles = styleSet{
		title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		bold:    r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(ColorMuted),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		err:     r.NewStyle().Foreground(ColorError),
		accent:  r.NewStyle().Foreground(ColorTealPrimary).Bold(true),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorTealDeep).
			Padding(0, 1),
	}
	return p
}

// Color reports whether the printer emits styling.
func (p *Printer) Color() bool {
	return p.color
}

// Writer returns the destination.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// Bold renders text in bold.
func (p *Printer) Bold(text string) string { return p.render(p.styles.bold, text) }

// Dim renders secondary text.
func (p *Printer) Dim(text string) string { return p.render(p.styles.muted, text) }

// Accent renders an identifier or other highlighted token.
func (p *Printer) Accent(text string) string { return p.render(p.styles.accent, text) }

// Icon renders an icon in its status color.
func (p *Printer) Icon(i Icon) string {
	switch i {
	case IconSuccess:
		return p.render(p.styles.success, string(i))
	case IconWarning:
		return p.render(p.styles.warning, string(i))
	case IconError:
		return p.render(p.styles.err, string(i))
	default:
		return p.render(p.styles.muted, string(i))
	}
}

// Println writes a line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Printf writes formatted text.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Title writes a heading line.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.render(p.styles.title, text))
}

// Success writes text prefixed with a check mark.
func (p *Printer) Success(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Icon(IconSuccess), p.render(p.styles.success, text))
}

// Warning writes text prefixed with a warning sign.
func (p *Printer) Warning(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Icon(IconWarning), p.render(p.styles.warning, text))
}

// Error writes text prefixed with a cross.
func (p *Printer) Error(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.Icon(IconError), p.render(p.styles.err, text))
}

// Muted writes a line of secondary text.
func (p *Printer) Muted(text string) {
	fmt.Fprintln(p.w, p.render(p.styles.muted, text))
}

// Box writes title and content in a rounded box. Without styling it
// falls back to "title: content".
func (p *Printer) Box(title, content string) {
	if !p.color {
		fmt.Fprintf(p.w, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, p.styles.box.Render(p.render(p.styles.title, title)+"\n"+content))
}

// ProgressBar renders pct (0-100) as a bar of width cells followed by the
// percentage.
func (p *Printer) ProgressBar(pct float64, width int) string {
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))
	bar := p.render(p.styles.success, strings.Repeat("█", filled)) +
		p.render(p.styles.muted, strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %5.1f%%", bar, pct)
}
