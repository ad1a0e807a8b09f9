// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package flows

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"

	flowsynccmd "github.com/flowsync/flowsync/cmd"
	"github.com/flowsync/flowsync/internal/exporter"
)

const exportAllDoc = `
Writes every version of every flow held by a registry to a directory, one
file per version. The files can be imported into another registry with
import-all-flows.

Existing export files are only replaced with --overwrite.

Examples:

    flowsync export-all-flows --url http://localhost:18080 ./export
    flowsync export-all-flows --config registry.yaml --output ./export --overwrite

See also:
    import-all-flows
`

// NewExportAllCommand returns a command exporting the content of a
// registry to a directory.
func NewExportAllCommand() cmd.Command {
	return &exportAllCommand{}
}

type exportAllCommand struct {
	registryCommandBase
	out cmd.Output

	output      string
	overwrite   bool
	interactive bool
}

// Info implements Command.
func (c *exportAllCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "export-all-flows",
		Args:    "[<directory>]",
		Purpose: "Exports every flow version of a registry to a directory.",
		Doc:     exportAllDoc + registrySettingsDoc(),
	}
}

// SetFlags implements Command.
func (c *exportAllCommand) SetFlags(f *gnuflag.FlagSet) {
	c.registryCommandBase.SetFlags(f)
	f.StringVar(&c.output, "output", "", "Directory to write the export files to")
	f.BoolVar(&c.overwrite, "overwrite", false, "Replace export files left by an earlier export")
	f.BoolVar(&c.interactive, "interactive", false, "Print progress even when the output is not a terminal")
	c.out.AddFlags(f, "summary", flowsynccmd.Formatters(map[string]cmd.Formatter{
		"summary": formatExportSummary,
		"tabular": formatExportTabular,
	}))
}

// Init implements Command.
func (c *exportAllCommand) Init(args []string) error {
	output, err := dirArg(c.output, "output", args)
	if err != nil {
		return errors.Trace(err)
	}
	c.output = output
	return nil
}

// Run implements Command.
func (c *exportAllCommand) Run(ctx *cmd.Context) error {
	dir, err := resolvePath(ctx, c.output)
	if err != nil {
		return errors.Trace(err)
	}
	api, err := c.getAPI(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	config := exporter.Config{
		Source:    api,
		Overwrite: c.overwrite,
		Logger:    loggo.GetLogger("flowsync.exporter"),
	}
	if c.interactive || flowsynccmd.IsTerminal(ctx.Stdout) {
		config.Notify = ctx.Infof
	}
	exp, err := exporter.NewExporter(config)
	if err != nil {
		return errors.Trace(err)
	}

	stdCtx, stop := interruptContext(ctx)
	defer stop()
	result, err := exp.ExportDir(stdCtx, dir)
	if err != nil {
		return errors.Trace(err)
	}
	return c.out.Write(ctx, result)
}
