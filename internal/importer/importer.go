// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package importer copies exported flow versions into a registry. Buckets
// and flows keep the identifiers they had in the registry they were
// exported from, so that process groups referring to them keep working.
// Versions of a flow are imported oldest first and numbered by the
// destination registry. Nothing is imported twice: running an import
// again against the same registry changes nothing.
package importer

import (
	"context"
	"encoding/json"
	"os"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/flowsync/flowsync/internal/catalog"
	"github.com/flowsync/flowsync/registry/transport"
)

// RegistryGateway is the registry API the importer reads from and writes
// to.
type RegistryGateway interface {
	IndexSource

	CreateBucket(ctx context.Context, bucket transport.Bucket) (transport.Bucket, error)
	CreateFlow(ctx context.Context, flow transport.Flow) (transport.Flow, error)
	LatestVersion(ctx context.Context, bucketID, flowID string) (transport.SnapshotMetadata, error)
	CreateVersion(ctx context.Context, snapshot transport.Snapshot, preserveSourceProperties bool) (transport.Snapshot, error)
}

// Logger represents the methods used by the importer to log details.
type Logger interface {
	Infof(string, ...interface{})
	Debugf(string, ...interface{})
}

// Notifier receives progress notes for a user watching the import.
type Notifier func(format string, args ...interface{})

// Config holds the dependencies and settings of an Importer.
type Config struct {
	Gateway RegistryGateway

	// RegistryURL is the base URL of the registry behind Gateway. Flow
	// references are rewritten to point at it.
	RegistryURL string

	// SkipExisting abandons the export files of flows that are already
	// in the registry, instead of adding the missing versions to them.
	SkipExisting bool

	// Notify, if set, is called with progress notes.
	Notify Notifier

	// Metrics, if set, counts the entities handled.
	Metrics *Collector

	Clock  clock.Clock
	Logger Logger
}

// Validate returns an error if the config cannot be used to create an
// Importer.
func (config Config) Validate() error {
	if config.Gateway == nil {
		return errors.NotValidf("nil Gateway")
	}
	if config.RegistryURL == "" {
		return errors.NotValidf("empty RegistryURL")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Importer imports export files into a registry.
type Importer struct {
	config Config
}

// NewImporter returns an Importer configured with config.
func NewImporter(config Config) (*Importer, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Importer{config: config}, nil
}

// ImportDir imports every export file found in dir.
func (i *Importer) ImportDir(ctx context.Context, dir string) (*Result, error) {
	entries, err := catalog.Scan(dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	i.config.Logger.Debugf("found %d export files in %s", len(entries), dir)
	return i.Run(ctx, entries)
}

// Run takes stock of the registry and then imports entries in order.
// Entries must be sorted as catalog.Sort sorts them. The first error
// stops the run; whatever was created until then stays.
func (i *Importer) Run(ctx context.Context, entries []catalog.Entry) (*Result, error) {
	start := i.config.Clock.Now()

	i.notify("Collecting buckets, flows and flow versions...")
	index, err := BuildIndex(ctx, i.config.Gateway)
	if err != nil {
		return nil, errors.Annotate(err, "reading registry contents")
	}
	buckets, flows, versions := index.Counts()
	i.notify("All buckets collected...")
	i.notify("All flows collected...")
	i.notify("All flow versions collected...")
	i.config.Logger.Debugf("registry holds %d buckets, %d flows and %d versions", buckets, flows, versions)

	r := &run{
		Importer: i,
		index:    index,
		created:  make(map[flowKey]string),
		result:   &Result{},
	}
	for _, entry := range entries {
		entryResult, err := r.importEntry(ctx, entry)
		if err != nil {
			return nil, errors.Annotatef(err, "importing %s", entry.Path)
		}
		r.result.add(entryResult)
	}

	r.result.Duration = i.config.Clock.Now().Sub(start)
	i.config.Metrics.finished(r.result.Duration)
	i.config.Logger.Infof("import completed: %d buckets, %d flows and %d versions created",
		r.result.BucketsCreated, r.result.FlowsCreated, r.result.VersionsCreated)
	return r.result, nil
}

func (i *Importer) notify(format string, args ...interface{}) {
	if i.config.Notify != nil {
		i.config.Notify(format, args...)
	}
}

// run holds the state of a single call to Run.
type run struct {
	*Importer

	index *Index
	// created holds the flows created during this run. They are not in
	// the index, which keeps describing the registry as it was.
	created map[flowKey]string
	result  *Result
}

func (r *run) importEntry(ctx context.Context, entry catalog.Entry) (EntryResult, error) {
	snapshot, err := readSnapshot(entry.Path)
	if err != nil {
		return EntryResult{}, errors.Trace(err)
	}
	bucket, flow, metadata := *snapshot.Bucket, *snapshot.Flow, snapshot.Metadata

	result := EntryResult{
		Entry:         entry,
		Bucket:        bucket.Name,
		Flow:          flow.Name,
		SourceVersion: metadata.Version,
	}
	r.notify("Importing %s - %d to %s", flow.Name, metadata.Version, bucket.Name)

	bucketID, ok := r.index.BucketID(bucket.Name)
	if ok {
		r.notify("%s already exists, skipping bucket creation...", bucket.Name)
		result.BucketAction = ActionExists
	} else {
		if _, err := r.config.Gateway.CreateBucket(ctx, transport.Bucket{
			Identifier:  bucket.Identifier,
			Name:        bucket.Name,
			Description: bucket.Description,
		}); err != nil {
			return EntryResult{}, errors.Trace(err)
		}
		bucketID = bucket.Identifier
		r.index.addBucket(bucket.Name, bucketID)
		result.BucketAction = ActionCreated
	}
	r.config.Metrics.entity(KindBucket, result.BucketAction)

	key := flowKey{bucketID: bucketID, name: flow.Name}
	flowID, ok := r.index.FlowID(bucketID, flow.Name)
	switch {
	case ok && r.config.SkipExisting:
		r.notify("%s already exists, skipping import...", flow.Name)
		result.FlowAction = ActionSkipped
		result.VersionAction = ActionSkipped
		r.config.Metrics.entity(KindFlow, ActionSkipped)
		r.config.Metrics.entity(KindVersion, ActionSkipped)
		return result, nil
	case ok:
		r.notify("%s already exists, skipping flow creation...", flow.Name)
		result.FlowAction = ActionExists
	default:
		if flowID, ok = r.created[key]; ok {
			result.FlowAction = ActionExists
			break
		}
		if _, err := r.config.Gateway.CreateFlow(ctx, transport.Flow{
			Identifier:       flow.Identifier,
			Name:             flow.Name,
			Description:      flow.Description,
			BucketIdentifier: bucketID,
		}); err != nil {
			return EntryResult{}, errors.Trace(err)
		}
		flowID = flow.Identifier
		r.created[key] = flowID
		result.FlowAction = ActionCreated
	}
	r.config.Metrics.entity(KindFlow, result.FlowAction)

	if r.index.HasVersion(flowID, metadata.Version) {
		r.config.Logger.Debugf("version %d of flow %q already in bucket %q", metadata.Version, flow.Name, bucket.Name)
		result.VersionAction = ActionExists
	} else {
		version, err := r.createVersion(ctx, snapshot, bucketID, flowID)
		if err != nil {
			return EntryResult{}, errors.Trace(err)
		}
		result.VersionAction = ActionCreated
		result.Version = version
	}
	r.config.Metrics.entity(KindVersion, result.VersionAction)

	r.notify("Successfully imported %s - %d to %s", flow.Name, metadata.Version, bucket.Name)
	return result, nil
}

// createVersion adds the snapshot to the flow as the version following
// the latest one the registry holds, and returns the number it got.
func (r *run) createVersion(ctx context.Context, snapshot transport.Snapshot, bucketID, flowID string) (int, error) {
	if n := RewriteStorageLocations(snapshot.FlowContents, r.config.RegistryURL); n > 0 {
		r.config.Logger.Debugf("rewrote %d storage locations under group %q of flow %q",
			n, snapshot.FlowContents.Name(), snapshot.Flow.Name)
	}

	var latest int
	metadata, err := r.config.Gateway.LatestVersion(ctx, bucketID, flowID)
	if err == nil {
		latest = metadata.Version
	} else if !errors.Is(err, errors.NotFound) {
		return 0, errors.Trace(err)
	}

	source, version := snapshot.Metadata.Version, latest+1
	stamped := *snapshot.Metadata
	stamped.BucketIdentifier = bucketID
	stamped.FlowIdentifier = flowID
	stamped.Version = version
	snapshot.Metadata = &stamped

	if _, err := r.config.Gateway.CreateVersion(ctx, snapshot, true); err != nil {
		return 0, errors.Trace(err)
	}
	r.config.Logger.Debugf("created version %d of flow %q from exported version %d",
		version, snapshot.Flow.Name, source)
	return version, nil
}

// readSnapshot reads an export file. The bucket, flow and metadata
// sections must all be present.
func readSnapshot(path string) (transport.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transport.Snapshot{}, errors.Trace(err)
	}
	var snapshot transport.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return transport.Snapshot{}, errors.NewNotValid(err, "export file content")
	}
	switch {
	case snapshot.Bucket == nil:
		return transport.Snapshot{}, errors.NotValidf("export file without bucket")
	case snapshot.Flow == nil:
		return transport.Snapshot{}, errors.NotValidf("export file without flow")
	case snapshot.Metadata == nil:
		return transport.Snapshot{}, errors.NotValidf("export file without snapshot metadata")
	}
	return snapshot, nil
}
