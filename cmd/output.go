// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/juju/ansiterm"
	"github.com/juju/cmd/v3"
	"github.com/mattn/go-isatty"
)

// Formatters returns the yaml and json formatters together with the
// given extra formatters, which may replace them.
func Formatters(extra map[string]cmd.Formatter) map[string]cmd.Formatter {
	formatters := map[string]cmd.Formatter{
		"yaml": cmd.FormatYaml,
		"json": cmd.FormatJson,
	}
	for name, f := range extra {
		formatters[name] = f
	}
	return formatters
}

// TabWriter returns a new tab writer with common layout definition.
func TabWriter(writer io.Writer) *ansiterm.TabWriter {
	const (
		// To format things into columns.
		minwidth = 0
		tabwidth = 1
		padding  = 2
		padchar  = ' '
		flags    = 0
	)
	return ansiterm.NewTabWriter(writer, minwidth, tabwidth, padding, padchar, flags)
}

// PrintRow writes values to w as one tab separated row.
func PrintRow(w io.Writer, values ...string) {
	fmt.Fprintln(w, strings.Join(values, "\t"))
}

// IsTerminal checks if the writer is attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
