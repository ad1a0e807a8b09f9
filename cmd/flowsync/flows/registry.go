// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package flows holds the commands that copy flows out of and into a
// registry.
package flows

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/juju/utils/v4"

	"github.com/flowsync/flowsync/internal/config"
	"github.com/flowsync/flowsync/internal/exporter"
	"github.com/flowsync/flowsync/internal/importer"
	"github.com/flowsync/flowsync/registry"
)

var logger = loggo.GetLogger("flowsync.cmd.flows")

// RegistryAPI is the registry client used by the flow commands.
type RegistryAPI interface {
	importer.RegistryGateway
	exporter.RegistrySource

	// URL returns the base URL of the registry.
	URL() string
}

// registryCommandBase is embedded by commands that talk to a registry.
// The registry settings come from an optional configuration file, with
// the flags taking precedence.
type registryCommandBase struct {
	cmd.CommandBase

	configFile string
	url        string
	token      string
	rateLimit  int

	api RegistryAPI
}

// SetFlags implements Command.
func (c *registryCommandBase) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.configFile, "config", "", "Path to a YAML file holding the registry settings")
	f.StringVar(&c.url, "url", "", "Base URL of the registry, such as http://localhost:18080")
	f.StringVar(&c.token, "token", "", "Bearer token sent to the registry")
	f.IntVar(&c.rateLimit, "rate-limit", 0, "Maximum number of requests per second, overriding the settings file")
}

// registrySettingsDoc describes the keys accepted in the file given with
// --config.
func registrySettingsDoc() string {
	fields := config.Schema()
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var doc strings.Builder
	doc.WriteString("\nThe file given with --config may hold the following settings:\n\n")
	for _, key := range keys {
		field := fields[key]
		fmt.Fprintf(&doc, "    %s (%s)", key, field.Type)
		if field.Mandatory {
			doc.WriteString(", required")
		}
		fmt.Fprintf(&doc, "\n        %s\n", field.Description)
	}
	return doc.String()
}

func (c *registryCommandBase) registryConfig(ctx *cmd.Context) (*config.Config, error) {
	attrs := make(map[string]interface{})
	if c.configFile != "" {
		path, err := resolvePath(ctx, c.configFile)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if attrs, err = config.ReadFile(path); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if c.url != "" {
		attrs[config.URLKey] = c.url
	}
	if c.token != "" {
		attrs[config.TokenKey] = c.token
	}
	if c.rateLimit != 0 {
		attrs[config.RateLimitKey] = c.rateLimit
	}
	cfg, err := config.New(attrs)
	if err != nil {
		return nil, errors.Annotate(err, "registry settings")
	}
	return cfg, nil
}

func (c *registryCommandBase) getAPI(ctx *cmd.Context) (RegistryAPI, error) {
	if c.api != nil {
		return c.api, nil
	}
	cfg, err := c.registryConfig(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	client, err := registry.NewClient(cfg.ClientConfig(loggo.GetLogger("flowsync.registry")))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return client, nil
}

// dirArg returns the directory given either with a flag or as the only
// positional argument.
func dirArg(flagValue, flagName string, args []string) (string, error) {
	switch {
	case len(args) > 1:
		return "", errors.Errorf("unrecognized args: %q", args[1:])
	case len(args) == 1 && flagValue != "":
		return "", errors.Errorf("--%s and a directory argument cannot both be given", flagName)
	case len(args) == 1:
		return args[0], nil
	case flagValue == "":
		return "", errors.Errorf("no %s directory specified", flagName)
	}
	return flagValue, nil
}

// resolvePath expands a leading ~ and makes path absolute relative to
// the directory the command runs in.
func resolvePath(ctx *cmd.Context, path string) (string, error) {
	path, err := utils.NormalizePath(path)
	if err != nil {
		return "", errors.Trace(err)
	}
	return ctx.AbsPath(path), nil
}

// interruptContext returns a context that is cancelled when the command
// is interrupted. The returned func must be called once the work is
// done.
func interruptContext(ctx *cmd.Context) (context.Context, func()) {
	stdCtx, cancel := context.WithCancel(context.Background())
	interrupted := make(chan os.Signal, 1)
	ctx.InterruptNotify(interrupted)
	go func() {
		select {
		case <-interrupted:
			logger.Debugf("interrupted, cancelling outstanding requests")
			cancel()
		case <-stdCtx.Done():
		}
	}()
	return stdCtx, func() {
		ctx.StopInterruptNotify(interrupted)
		cancel()
	}
}
