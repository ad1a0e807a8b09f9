// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"context"
	"strconv"

	"github.com/juju/errors"

	"github.com/flowsync/flowsync/registry/transport"
)

// ListVersions returns the metadata of every version of a flow.
func (c *Client) ListVersions(ctx context.Context, flowID string) ([]transport.SnapshotMetadata, error) {
	path, err := c.path.Join("flows", flowID, "versions")
	if err != nil {
		return nil, errors.Trace(err)
	}
	var versions []transport.SnapshotMetadata
	if _, err := c.client.Get(ctx, path, &versions); err != nil {
		return nil, errors.Annotatef(err, "listing versions of flow %q", flowID)
	}
	return versions, nil
}

// LatestVersion returns the metadata of the most recent version of a
// flow. A flow without versions yields an error satisfying
// errors.IsNotFound.
func (c *Client) LatestVersion(ctx context.Context, bucketID, flowID string) (transport.SnapshotMetadata, error) {
	path, err := c.path.Join("buckets", bucketID, "flows", flowID, "versions", "latest", "metadata")
	if err != nil {
		return transport.SnapshotMetadata{}, errors.Trace(err)
	}
	var metadata transport.SnapshotMetadata
	if _, err := c.client.Get(ctx, path, &metadata); err != nil {
		return transport.SnapshotMetadata{}, errors.Annotatef(err, "getting latest version of flow %q", flowID)
	}
	return metadata, nil
}

// GetVersion returns a single version of a flow, including its content.
func (c *Client) GetVersion(ctx context.Context, bucketID, flowID string, version int) (transport.Snapshot, error) {
	path, err := c.path.Join("buckets", bucketID, "flows", flowID, "versions", strconv.Itoa(version))
	if err != nil {
		return transport.Snapshot{}, errors.Trace(err)
	}
	var snapshot transport.Snapshot
	if _, err := c.client.Get(ctx, path, &snapshot); err != nil {
		return transport.Snapshot{}, errors.Annotatef(err, "getting version %d of flow %q", version, flowID)
	}
	return snapshot, nil
}

// CreateVersion stores snapshot as a new version of the flow named by its
// metadata. The version number in the metadata must be one more than the
// latest version of the flow. With preserveSourceProperties the registry
// keeps the component identifiers found in the content.
func (c *Client) CreateVersion(ctx context.Context, snapshot transport.Snapshot, preserveSourceProperties bool) (transport.Snapshot, error) {
	if snapshot.Metadata == nil {
		return transport.Snapshot{}, errors.NotValidf("snapshot without metadata")
	}
	metadata := snapshot.Metadata
	path, err := c.path.Join("buckets", metadata.BucketIdentifier, "flows", metadata.FlowIdentifier, "versions")
	if err != nil {
		return transport.Snapshot{}, errors.Trace(err)
	}
	if path, err = path.Query("preserveSourceProperties", strconv.FormatBool(preserveSourceProperties)); err != nil {
		return transport.Snapshot{}, errors.Trace(err)
	}

	var created transport.Snapshot
	if _, err := c.client.Post(ctx, path, snapshot, &created); err != nil {
		return transport.Snapshot{}, errors.Annotatef(err, "creating version %d of flow %q", metadata.Version, metadata.FlowIdentifier)
	}
	return created, nil
}
