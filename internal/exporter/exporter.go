// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package exporter writes every flow version held by a registry to a
// directory, one file per version, named so that the importer can find
// them again.
package exporter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/juju/naturalsort"

	"github.com/flowsync/flowsync/internal/catalog"
	"github.com/flowsync/flowsync/registry/transport"
)

// RegistrySource is the part of the registry API the exporter reads.
type RegistrySource interface {
	ListBuckets(ctx context.Context) ([]transport.Bucket, error)
	ListFlows(ctx context.Context, bucketID string) ([]transport.Flow, error)
	ListVersions(ctx context.Context, flowID string) ([]transport.SnapshotMetadata, error)
	GetVersion(ctx context.Context, bucketID, flowID string, version int) (transport.Snapshot, error)
}

// Logger represents the methods used by the exporter to log details.
type Logger interface {
	Warningf(string, ...interface{})
	Infof(string, ...interface{})
	Debugf(string, ...interface{})
}

// Config holds the dependencies and settings of an Exporter.
type Config struct {
	Source RegistrySource

	// Overwrite replaces files left by an earlier export. Without it an
	// existing file stops the export.
	Overwrite bool

	// Notify, if set, is called with progress notes.
	Notify func(format string, args ...interface{})

	Logger Logger
}

// Validate returns an error if the config cannot be used to create an
// Exporter.
func (config Config) Validate() error {
	if config.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// FileResult describes one written file.
type FileResult struct {
	Bucket  string `json:"bucket" yaml:"bucket"`
	Flow    string `json:"flow" yaml:"flow"`
	Version int    `json:"version" yaml:"version"`
	Path    string `json:"path" yaml:"path"`
	Size    int64  `json:"size" yaml:"size"`
}

// Result summarises an export.
type Result struct {
	Files   []FileResult `json:"files" yaml:"files"`
	Buckets int          `json:"buckets" yaml:"buckets"`
	Flows   int          `json:"flows" yaml:"flows"`
	Size    int64        `json:"size" yaml:"size"`
}

// Exporter exports the content of a registry.
type Exporter struct {
	config Config
}

// NewExporter returns an Exporter configured with config.
func NewExporter(config Config) (*Exporter, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Exporter{config: config}, nil
}

// ExportDir writes every version of every flow to dir, creating dir if
// needed. Buckets and flows are visited in natural name order and the
// versions of a flow oldest first.
func (e *Exporter) ExportDir(ctx context.Context, dir string) (*Result, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Annotatef(err, "creating %s", dir)
	}

	buckets, err := e.config.Source.ListBuckets(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}

	result := &Result{}
	for _, bucket := range sortBuckets(buckets) {
		if err := e.checkName("bucket", bucket.Name); err != nil {
			return nil, errors.Trace(err)
		}
		flows, err := e.config.Source.ListFlows(ctx, bucket.Identifier)
		if err != nil {
			return nil, errors.Trace(err)
		}
		result.Buckets++

		for _, flow := range sortFlows(flows) {
			if err := e.checkName("flow", flow.Name); err != nil {
				return nil, errors.Trace(err)
			}
			if err := e.exportFlow(ctx, dir, bucket, flow, result); err != nil {
				return nil, errors.Trace(err)
			}
			result.Flows++
		}
	}

	e.config.Logger.Infof("exported %d versions of %d flows in %d buckets (%s)",
		len(result.Files), result.Flows, result.Buckets, humanize.Bytes(uint64(result.Size)))
	return result, nil
}

func (e *Exporter) exportFlow(ctx context.Context, dir string, bucket transport.Bucket, flow transport.Flow, result *Result) error {
	metadata, err := e.config.Source.ListVersions(ctx, flow.Identifier)
	if err != nil {
		return errors.Trace(err)
	}
	versions := make([]int, len(metadata))
	for i, m := range metadata {
		versions[i] = m.Version
	}
	sort.Ints(versions)

	for _, version := range versions {
		e.notify("Exporting %s - %d from %s", flow.Name, version, bucket.Name)
		snapshot, err := e.config.Source.GetVersion(ctx, bucket.Identifier, flow.Identifier, version)
		if err != nil {
			return errors.Trace(err)
		}
		// The importer takes names and identifiers from these sections.
		if snapshot.Bucket == nil {
			b := bucket
			snapshot.Bucket = &b
		}
		if snapshot.Flow == nil {
			f := flow
			snapshot.Flow = &f
		}

		path := filepath.Join(dir, catalog.FileName(bucket.Name, flow.Name, version))
		if filepath.Dir(path) != filepath.Clean(dir) {
			return errors.NotValidf("export file %s outside %s", path, dir)
		}
		size, err := e.writeSnapshot(path, snapshot)
		if err != nil {
			return errors.Trace(err)
		}
		e.config.Logger.Debugf("wrote %s (%s)", path, humanize.Bytes(uint64(size)))
		result.Files = append(result.Files, FileResult{
			Bucket:  bucket.Name,
			Flow:    flow.Name,
			Version: version,
			Path:    path,
			Size:    size,
		})
		result.Size += size
	}
	return nil
}

func (e *Exporter) writeSnapshot(path string, snapshot transport.Snapshot) (int64, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return 0, errors.Annotatef(err, "encoding %s", filepath.Base(path))
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if e.config.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if os.IsExist(err) {
		return 0, errors.AlreadyExistsf("export file %s", path)
	} else if err != nil {
		return 0, errors.Trace(err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return 0, errors.Annotatef(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return 0, errors.Annotatef(err, "writing %s", path)
	}
	return int64(len(data)), nil
}

// checkName warns about names the importer cannot read back, because
// the separator also delimits the fields of the file name.
// checkName rejects names that would place an export file outside the
// export directory and warns about names the importer cannot parse.
func (e *Exporter) checkName(kind, name string) error {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return errors.NotValidf("%s name %q", kind, name)
	}
	if strings.Contains(name, catalog.Separator) {
		e.config.Logger.Warningf("%s name %q contains %q, its export files cannot be imported", kind, name, catalog.Separator)
	}
	return nil
}

func (e *Exporter) notify(format string, args ...interface{}) {
	if e.config.Notify != nil {
		e.config.Notify(format, args...)
	}
}

func sortBuckets(buckets []transport.Bucket) []transport.Bucket {
	byName := make(map[string]transport.Bucket, len(buckets))
	names := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		byName[bucket.Name] = bucket
		names = append(names, bucket.Name)
	}
	sorted := make([]transport.Bucket, 0, len(names))
	for _, name := range naturalsort.Sort(names) {
		sorted = append(sorted, byName[name])
	}
	return sorted
}

func sortFlows(flows []transport.Flow) []transport.Flow {
	byName := make(map[string]transport.Flow, len(flows))
	names := make([]string, 0, len(flows))
	for _, flow := range flows {
		byName[flow.Name] = flow
		names = append(names, flow.Name)
	}
	sorted := make([]transport.Flow, 0, len(names))
	for _, name := range naturalsort.Sort(names) {
		sorted = append(sorted, byName[name])
	}
	return sorted
}
