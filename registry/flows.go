// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"context"

	"github.com/juju/errors"

	"github.com/flowsync/flowsync/registry/transport"
)

// ListFlows returns the flows of the bucket with the given identifier.
func (c *Client) ListFlows(ctx context.Context, bucketID string) ([]transport.Flow, error) {
	path, err := c.path.Join("buckets", bucketID, "flows")
	if err != nil {
		return nil, errors.Trace(err)
	}
	var flows []transport.Flow
	if _, err := c.client.Get(ctx, path, &flows); err != nil {
		return nil, errors.Annotatef(err, "listing flows of bucket %q", bucketID)
	}
	return flows, nil
}

// CreateFlow creates a flow in the bucket named by flow.BucketIdentifier,
// keeping the identifier of the given flow.
func (c *Client) CreateFlow(ctx context.Context, flow transport.Flow) (transport.Flow, error) {
	if flow.BucketIdentifier == "" {
		return transport.Flow{}, errors.NotValidf("flow %q without bucket", flow.Name)
	}
	path, err := c.path.Join("buckets", flow.BucketIdentifier, "flows")
	if err != nil {
		return transport.Flow{}, errors.Trace(err)
	}
	if flow.Type == "" {
		flow.Type = transport.FlowType
	}

	var created transport.Flow
	if _, err := c.client.Post(ctx, path, flow, &created); err != nil {
		return transport.Flow{}, errors.Annotatef(err, "creating flow %q", flow.Name)
	}
	c.logger.Debugf("created flow %q (%s) in bucket %s", created.Name, created.Identifier, flow.BucketIdentifier)
	return created, nil
}
