// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package flows

import (
	"github.com/juju/clock"
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"

	flowsynccmd "github.com/flowsync/flowsync/cmd"
	"github.com/flowsync/flowsync/internal/importer"
)

const importAllDoc = `
Imports every export file found in a directory into a registry. Export
files are named toolkit_registry_export_all_<bucket>_<flow>_<version> and
are usually written by export-all-flows.

Buckets and flows that are missing from the registry are created with the
identifiers they had where they were exported from. The versions of a flow
are imported oldest first and numbered by the registry. Versions already
in the registry are left alone, so running the same import twice changes
nothing.

With --skip-existing, export files of flows that already exist in the
registry are skipped instead of adding their missing versions.

Progress is printed when the output is a terminal or with --interactive.

Examples:

    flowsync import-all-flows --url http://localhost:18080 ./export
    flowsync import-all-flows --config registry.yaml --input ./export --skip-existing
    flowsync import-all-flows --url http://localhost:18080 --format tabular ./export

See also:
    export-all-flows
`

// NewImportAllCommand returns a command importing a directory of export
// files into a registry.
func NewImportAllCommand() cmd.Command {
	return &importAllCommand{}
}

type importAllCommand struct {
	registryCommandBase
	out cmd.Output

	input        string
	skipExisting bool
	interactive  bool
	metricsFile  string

	clock clock.Clock
}

// Info implements Command.
func (c *importAllCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "import-all-flows",
		Args:    "[<directory>]",
		Purpose: "Imports every exported flow version into a registry.",
		Doc:     importAllDoc + registrySettingsDoc(),
	}
}

// SetFlags implements Command.
func (c *importAllCommand) SetFlags(f *gnuflag.FlagSet) {
	c.registryCommandBase.SetFlags(f)
	f.StringVar(&c.input, "input", "", "Directory holding the export files")
	f.BoolVar(&c.skipExisting, "skip-existing", false, "Skip the export files of flows already in the registry")
	f.BoolVar(&c.interactive, "interactive", false, "Print progress even when the output is not a terminal")
	f.StringVar(&c.metricsFile, "metrics-file", "", "Write import metrics to this file in the Prometheus text format")
	c.out.AddFlags(f, "summary", flowsynccmd.Formatters(map[string]cmd.Formatter{
		"summary": formatImportSummary,
		"tabular": formatImportTabular,
	}))
}

// Init implements Command.
func (c *importAllCommand) Init(args []string) error {
	input, err := dirArg(c.input, "input", args)
	if err != nil {
		return errors.Trace(err)
	}
	c.input = input
	return nil
}

// Run implements Command.
func (c *importAllCommand) Run(ctx *cmd.Context) error {
	dir, err := resolvePath(ctx, c.input)
	if err != nil {
		return errors.Trace(err)
	}
	api, err := c.getAPI(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	clk := c.clock
	if clk == nil {
		clk = clock.WallClock
	}
	collector := importer.NewMetricsCollector()
	config := importer.Config{
		Gateway:      api,
		RegistryURL:  api.URL(),
		SkipExisting: c.skipExisting,
		Metrics:      collector,
		Clock:        clk,
		Logger:       loggo.GetLogger("flowsync.importer"),
	}
	if c.interactive || flowsynccmd.IsTerminal(ctx.Stdout) {
		config.Notify = ctx.Infof
	}
	imp, err := importer.NewImporter(config)
	if err != nil {
		return errors.Trace(err)
	}

	stdCtx, stop := interruptContext(ctx)
	result, err := imp.ImportDir(stdCtx, dir)
	stop()

	// Metrics describe failed runs too.
	if c.metricsFile != "" {
		if metricsErr := c.writeMetrics(ctx, collector); metricsErr != nil {
			if err == nil {
				return errors.Trace(metricsErr)
			}
			logger.Errorf("%v", metricsErr)
		}
	}
	if err != nil {
		return errors.Trace(err)
	}
	return c.out.Write(ctx, result)
}

func (c *importAllCommand) writeMetrics(ctx *cmd.Context, collector *importer.Collector) error {
	path, err := resolvePath(ctx, c.metricsFile)
	if err != nil {
		return errors.Trace(err)
	}
	gatherer := prometheus.NewRegistry()
	if err := gatherer.Register(collector); err != nil {
		return errors.Trace(err)
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return errors.Annotate(err, "writing import metrics")
	}
	return nil
}
