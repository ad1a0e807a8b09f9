// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package importer

import (
	"context"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/flowsync/flowsync/registry/transport"
)

// IndexSource is the read side of the registry, used to take stock of
// what already exists before anything is imported.
type IndexSource interface {
	ListBuckets(ctx context.Context) ([]transport.Bucket, error)
	ListFlows(ctx context.Context, bucketID string) ([]transport.Flow, error)
	ListVersions(ctx context.Context, flowID string) ([]transport.SnapshotMetadata, error)
}

// flowKey identifies a flow by name. Flow names are only unique within
// a bucket.
type flowKey struct {
	bucketID string
	name     string
}

// Index records the buckets, flows and versions held by a registry at
// the time it was built. Only the bucket names are extended afterwards,
// as buckets get created.
type Index struct {
	buckets  map[string]string
	flows    map[flowKey]string
	versions map[string]set.Ints
}

// BuildIndex lists every bucket, the flows of every bucket and the
// versions of every flow. Any failure aborts the build.
func BuildIndex(ctx context.Context, source IndexSource) (*Index, error) {
	index := &Index{
		buckets:  make(map[string]string),
		flows:    make(map[flowKey]string),
		versions: make(map[string]set.Ints),
	}

	buckets, err := source.ListBuckets(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, bucket := range buckets {
		index.buckets[bucket.Name] = bucket.Identifier
	}

	for _, bucketID := range index.buckets {
		flows, err := source.ListFlows(ctx, bucketID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for _, flow := range flows {
			index.flows[flowKey{bucketID: bucketID, name: flow.Name}] = flow.Identifier
		}
	}

	for _, flowID := range index.flows {
		versions, err := source.ListVersions(ctx, flowID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		numbers := set.NewInts()
		for _, version := range versions {
			numbers.Add(version.Version)
		}
		index.versions[flowID] = numbers
	}
	return index, nil
}

// BucketID returns the identifier of the bucket with the given name.
func (i *Index) BucketID(name string) (string, bool) {
	id, ok := i.buckets[name]
	return id, ok
}

// FlowID returns the identifier of the named flow in a bucket.
func (i *Index) FlowID(bucketID, name string) (string, bool) {
	id, ok := i.flows[flowKey{bucketID: bucketID, name: name}]
	return id, ok
}

// HasVersion reports whether the flow held the given version number.
func (i *Index) HasVersion(flowID string, version int) bool {
	versions, ok := i.versions[flowID]
	return ok && versions.Contains(version)
}

// Counts returns the number of buckets, flows and versions indexed.
func (i *Index) Counts() (buckets, flows, versions int) {
	for _, v := range i.versions {
		versions += v.Size()
	}
	return len(i.buckets), len(i.flows), versions
}

func (i *Index) addBucket(name, id string) {
	i.buckets[name] = id
}
