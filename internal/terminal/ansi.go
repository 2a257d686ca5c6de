// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color names accepted by Colorize.
const (
	Red    = "red"
	Green  = "green"
	Yellow = "yellow"
	Cyan   = "cyan"
	Dim    = "dim"
	Bold   = "bold"
)

var attributes = map[string][]color.Attribute{
	Red:    {color.FgRed},
	Green:  {color.FgGreen},
	Yellow: {color.FgYellow},
	Cyan:   {color.FgCyan},
	Dim:    {color.Faint},
	Bold:   {color.Bold},
}

// Renderer writes command output, colored only when the destination is a
// terminal.
type Renderer interface {
	Printf(format string, a ...any)
	Println(a ...any)
	Colorize(text, color string) string
	Success() string
	Warning() string
	Error() string
	IsTTY() bool
}

type ANSIRenderer struct {
	w       io.Writer
	noColor bool
	isTTY   bool
	ttyOnce sync.Once
}

// NewANSIRenderer renders to w; a nil w means stdout. noColor disables color
// regardless of the environment.
func NewANSIRenderer(w io.Writer, noColor bool) *ANSIRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &ANSIRenderer{w: w, noColor: noColor}
}

func (r *ANSIRenderer) IsTTY() bool {
	r.ttyOnce.Do(func() {
		r.isTTY = r.checkTTY()
	})
	return r.isTTY
}

func (r *ANSIRenderer) checkTTY() bool {
	if r.noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := r.w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (r *ANSIRenderer) Printf(format string, a ...any) {
	fmt.Fprintf(r.w, format, a...)
}

func (r *ANSIRenderer) Println(a ...any) {
	fmt.Fprintln(r.w, a...)
}

func (r *ANSIRenderer) Colorize(text, name string) string {
	attrs, ok := attributes[name]
	if !ok || !r.IsTTY() {
		return text
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(text)
}

func (r *ANSIRenderer) Success() string { return r.Colorize("[OK]", Green) }
func (r *ANSIRenderer) Warning() string { return r.Colorize("[!]", Yellow) }
func (r *ANSIRenderer) Error() string   { return r.Colorize("[X]", Red) }
