// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transport

import (
	"github.com/juju/errors"
)

// Bucket is a top level registry namespace grouping flows.
type Bucket struct {
	Identifier       string `json:"identifier,omitempty"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	CreatedTimestamp int64  `json:"createdTimestamp,omitempty"`

	Extra Members `json:"-"`
}

type bucketDoc Bucket

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	extra, err := splitMembers(data, (*bucketDoc)(b),
		"identifier", "name", "description", "createdTimestamp")
	if err != nil {
		return errors.Annotate(err, "decoding bucket")
	}
	b.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b Bucket) MarshalJSON() ([]byte, error) {
	return joinMembers(bucketDoc(b), b.Extra)
}

// Flow is a named, versioned flow definition inside a bucket.
type Flow struct {
	Identifier        string `json:"identifier,omitempty"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	BucketIdentifier  string `json:"bucketIdentifier,omitempty"`
	BucketName        string `json:"bucketName,omitempty"`
	Type              string `json:"type,omitempty"`
	VersionCount      int64  `json:"versionCount,omitempty"`
	CreatedTimestamp  int64  `json:"createdTimestamp,omitempty"`
	ModifiedTimestamp int64  `json:"modifiedTimestamp,omitempty"`

	Extra Members `json:"-"`
}

type flowDoc Flow

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flow) UnmarshalJSON(data []byte) error {
	extra, err := splitMembers(data, (*flowDoc)(f),
		"identifier", "name", "description", "bucketIdentifier", "bucketName",
		"type", "versionCount", "createdTimestamp", "modifiedTimestamp")
	if err != nil {
		return errors.Annotate(err, "decoding flow")
	}
	f.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flow) MarshalJSON() ([]byte, error) {
	return joinMembers(flowDoc(f), f.Extra)
}

// FlowType is the item type the registry expects for versioned flows.
const FlowType = "Flow"
