// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"fmt"
	"os"

	"github.com/juju/cmd/v3"

	flowsynccmd "github.com/flowsync/flowsync/cmd"
	"github.com/flowsync/flowsync/cmd/flowsync/flows"
)

var flowsyncDoc = `
flowsync copies versioned flows between flow registries. It exports every
flow version held by a registry to a directory of files, and imports such
a directory into another registry, keeping the bucket and flow
identifiers of the original.

Logging is configured with --logging-config or the
` + flowsynccmd.LoggingConfigEnvKey + ` environment variable.
`

// Main registers subcommands for the flowsync executable, and hands over
// control to the cmd package. It returns the exit code of the command.
func Main(args []string) int {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return cmd.Main(NewFlowsyncCommand(), ctx, args[1:])
}

// NewFlowsyncCommand returns the flowsync super command with every
// subcommand registered.
func NewFlowsyncCommand() cmd.Command {
	fcmd := flowsynccmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    "flowsync",
		Purpose: "Copy versioned flows between flow registries.",
		Doc:     flowsyncDoc,
	})
	registerCommands(fcmd)
	return fcmd
}

type commandRegistry interface {
	Register(cmd.Command)
}

// registerCommands registers commands in the specified registry.
func registerCommands(r commandRegistry) {
	r.Register(flows.NewExportAllCommand())
	r.Register(flows.NewImportAllCommand())
}
