// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package transport

import (
	"bytes"
	"encoding/json"

	"github.com/juju/errors"
)

// Snapshot is a single version of a flow together with the bucket and
// flow it was exported from.
type Snapshot struct {
	Metadata     *SnapshotMetadata `json:"snapshotMetadata,omitempty"`
	FlowContents *ProcessGroup     `json:"flowContents,omitempty"`
	Bucket       *Bucket           `json:"bucket,omitempty"`
	Flow         *Flow             `json:"flow,omitempty"`

	Extra Members `json:"-"`
}

type snapshotDoc Snapshot

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	extra, err := splitMembers(data, (*snapshotDoc)(s),
		"snapshotMetadata", "flowContents", "bucket", "flow")
	if err != nil {
		return errors.Annotate(err, "decoding snapshot")
	}
	s.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return joinMembers(snapshotDoc(s), s.Extra)
}

// SnapshotMetadata identifies a version of a flow.
type SnapshotMetadata struct {
	BucketIdentifier string `json:"bucketIdentifier,omitempty"`
	FlowIdentifier   string `json:"flowIdentifier,omitempty"`
	Version          int    `json:"version"`
	Timestamp        int64  `json:"timestamp,omitempty"`
	Author           string `json:"author,omitempty"`
	Comments         string `json:"comments,omitempty"`

	Extra Members `json:"-"`
}

type metadataDoc SnapshotMetadata

// UnmarshalJSON implements json.Unmarshaler.
func (m *SnapshotMetadata) UnmarshalJSON(data []byte) error {
	extra, err := splitMembers(data, (*metadataDoc)(m),
		"bucketIdentifier", "flowIdentifier", "version", "timestamp", "author", "comments")
	if err != nil {
		return errors.Annotate(err, "decoding snapshot metadata")
	}
	m.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m SnapshotMetadata) MarshalJSON() ([]byte, error) {
	return joinMembers(metadataDoc(m), m.Extra)
}

// ProcessGroup is a node of the flow content tree. Only the members the
// importer works on are modelled, the processors, connections and other
// components of the group are kept in Extra.
type ProcessGroup struct {
	// Coordinates is set when the group is itself a versioned flow
	// stored in a registry.
	Coordinates   *FlowCoordinates `json:"versionedFlowCoordinates,omitempty"`
	ProcessGroups []*ProcessGroup  `json:"processGroups,omitempty"`

	Extra Members `json:"-"`
}

type processGroupDoc ProcessGroup

// UnmarshalJSON implements json.Unmarshaler.
func (g *ProcessGroup) UnmarshalJSON(data []byte) error {
	extra, err := splitMembers(data, (*processGroupDoc)(g),
		"versionedFlowCoordinates", "processGroups")
	if err != nil {
		return errors.Trace(err)
	}
	g.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g ProcessGroup) MarshalJSON() ([]byte, error) {
	return joinMembers(processGroupDoc(g), g.Extra)
}

// Name returns the name of the group, or an empty string if it has none.
func (g *ProcessGroup) Name() string {
	var name string
	if raw, ok := g.Extra["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	return name
}

// FlowCoordinates points a process group at a flow version held in a
// registry.
type FlowCoordinates struct {
	BucketID        string     `json:"bucketId"`
	FlowID          string     `json:"flowId"`
	Version         VersionRef `json:"version"`
	StorageLocation string     `json:"storageLocation,omitempty"`

	Extra Members `json:"-"`
}

type coordinatesDoc FlowCoordinates

// UnmarshalJSON implements json.Unmarshaler.
func (c *FlowCoordinates) UnmarshalJSON(data []byte) error {
	extra, err := splitMembers(data, (*coordinatesDoc)(c),
		"bucketId", "flowId", "version", "storageLocation")
	if err != nil {
		return errors.Trace(err)
	}
	c.Extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c FlowCoordinates) MarshalJSON() ([]byte, error) {
	return joinMembers(coordinatesDoc(c), c.Extra)
}

// VersionRef is the version held in flow coordinates. Older registries
// encode it as a number and newer ones as a string; the encoding read is
// the encoding written.
type VersionRef struct {
	raw json.RawMessage
}

// String returns the version without any JSON quoting.
func (v VersionRef) String() string {
	if len(v.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v.raw))
}

// MarshalJSON implements json.Marshaler.
func (v VersionRef) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VersionRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.raw = nil
		return nil
	}
	v.raw = append(v.raw[:0], data...)
	return nil
}
