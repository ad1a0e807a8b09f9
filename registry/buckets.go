// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"context"

	"github.com/juju/errors"

	"github.com/flowsync/flowsync/registry/transport"
)

// ListBuckets returns every bucket the caller can read.
func (c *Client) ListBuckets(ctx context.Context) ([]transport.Bucket, error) {
	path, err := c.path.Join("buckets")
	if err != nil {
		return nil, errors.Trace(err)
	}
	var buckets []transport.Bucket
	if _, err := c.client.Get(ctx, path, &buckets); err != nil {
		return nil, errors.Annotate(err, "listing buckets")
	}
	return buckets, nil
}

// CreateBucket creates a bucket. The identifier of the given bucket is
// kept by the registry, so flows referring to it by identifier keep
// working after an import.
func (c *Client) CreateBucket(ctx context.Context, bucket transport.Bucket) (transport.Bucket, error) {
	path, err := c.path.Join("buckets")
	if err != nil {
		return transport.Bucket{}, errors.Trace(err)
	}
	if path, err = path.Query("preserveSourceProperties", "true"); err != nil {
		return transport.Bucket{}, errors.Trace(err)
	}

	var created transport.Bucket
	if _, err := c.client.Post(ctx, path, bucket, &created); err != nil {
		return transport.Bucket{}, errors.Annotatef(err, "creating bucket %q", bucket.Name)
	}
	c.logger.Debugf("created bucket %q (%s)", created.Name, created.Identifier)
	return created, nil
}
