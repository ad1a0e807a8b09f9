// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package flows

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/juju/ansiterm"
	"github.com/juju/errors"

	flowsynccmd "github.com/flowsync/flowsync/cmd"
	"github.com/flowsync/flowsync/internal/exporter"
	"github.com/flowsync/flowsync/internal/importer"
)

var actionColor = map[importer.Action]*ansiterm.Context{
	importer.ActionCreated: ansiterm.Foreground(ansiterm.Green),
	importer.ActionSkipped: ansiterm.Foreground(ansiterm.Yellow),
}

func formatImportSummary(writer io.Writer, value interface{}) error {
	result, ok := value.(*importer.Result)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", result, value)
	}
	_, err := fmt.Fprintf(writer,
		"Import completed in %v: %d buckets, %d flows and %d flow versions created, %d versions already present, %d files skipped.\n",
		result.Duration, result.BucketsCreated, result.FlowsCreated, result.VersionsCreated,
		result.VersionsExisted, result.EntriesSkipped)
	return errors.Trace(err)
}

func formatImportTabular(writer io.Writer, value interface{}) error {
	result, ok := value.(*importer.Result)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", result, value)
	}
	if len(result.Entries) == 0 {
		_, err := fmt.Fprintln(writer, "No export files found.")
		return errors.Trace(err)
	}

	tw := flowsynccmd.TabWriter(writer)
	flowsynccmd.PrintRow(tw, "BUCKET", "FLOW", "VERSION", "BUCKET-STATUS", "FLOW-STATUS", "VERSION-STATUS", "STORED-AS")
	for _, entry := range result.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t", entry.Bucket, entry.Flow, entry.SourceVersion)
		for _, action := range []importer.Action{entry.BucketAction, entry.FlowAction, entry.VersionAction} {
			printAction(tw, action)
			fmt.Fprint(tw, "\t")
		}
		stored := "-"
		if entry.Version > 0 {
			stored = strconv.Itoa(entry.Version)
		}
		fmt.Fprintln(tw, stored)
	}
	return errors.Trace(tw.Flush())
}

func printAction(tw *ansiterm.TabWriter, action importer.Action) {
	if action == "" {
		fmt.Fprint(tw, "-")
		return
	}
	if color, ok := actionColor[action]; ok {
		color.Fprint(tw, action)
		return
	}
	fmt.Fprint(tw, action)
}

func formatExportSummary(writer io.Writer, value interface{}) error {
	result, ok := value.(*exporter.Result)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", result, value)
	}
	_, err := fmt.Fprintf(writer, "Export completed: %d flow versions of %d flows in %d buckets written (%s).\n",
		len(result.Files), result.Flows, result.Buckets, humanize.Bytes(uint64(result.Size)))
	return errors.Trace(err)
}

func formatExportTabular(writer io.Writer, value interface{}) error {
	result, ok := value.(*exporter.Result)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", result, value)
	}
	if len(result.Files) == 0 {
		_, err := fmt.Fprintln(writer, "No flow versions found.")
		return errors.Trace(err)
	}

	tw := flowsynccmd.TabWriter(writer)
	tw.SetColumnAlignRight(3)
	flowsynccmd.PrintRow(tw, "BUCKET", "FLOW", "VERSION", "SIZE", "FILE")
	for _, file := range result.Files {
		flowsynccmd.PrintRow(tw, file.Bucket, file.Flow, strconv.Itoa(file.Version),
			humanize.Bytes(uint64(file.Size)), file.Path)
	}
	return errors.Trace(tw.Flush())
}
