// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package importer

import (
	"encoding/json"
	"time"

	"github.com/flowsync/flowsync/internal/catalog"
)

// Action describes what happened to an entity during an import.
type Action string

const (
	// ActionCreated means the entity was created.
	ActionCreated Action = "created"

	// ActionExists means the entity was already in the registry.
	ActionExists Action = "exists"

	// ActionSkipped means the entry was abandoned because its flow
	// already existed and existing flows are skipped.
	ActionSkipped Action = "skipped"
)

// EntryResult is the outcome of importing one export file.
type EntryResult struct {
	Entry catalog.Entry `json:"-" yaml:"-"`

	Bucket string `json:"bucket" yaml:"bucket"`
	Flow   string `json:"flow" yaml:"flow"`

	// SourceVersion is the version number recorded in the export.
	SourceVersion int `json:"source-version" yaml:"source-version"`

	BucketAction  Action `json:"bucket-action" yaml:"bucket-action"`
	FlowAction    Action `json:"flow-action" yaml:"flow-action"`
	VersionAction Action `json:"version-action" yaml:"version-action"`

	// Version is the number the registry stored the version under. It is
	// zero unless VersionAction is ActionCreated.
	Version int `json:"version,omitempty" yaml:"version,omitempty"`
}

// Result summarises an import run.
type Result struct {
	Entries []EntryResult `json:"entries" yaml:"entries"`

	BucketsCreated  int `json:"buckets-created" yaml:"buckets-created"`
	FlowsCreated    int `json:"flows-created" yaml:"flows-created"`
	VersionsCreated int `json:"versions-created" yaml:"versions-created"`
	VersionsExisted int `json:"versions-existed" yaml:"versions-existed"`
	EntriesSkipped  int `json:"entries-skipped" yaml:"entries-skipped"`

	Duration time.Duration `json:"-" yaml:"-"`
}

type resultDoc Result

// formattedResult carries the duration in its string form, such as
// "1.5s", for the yaml and json output.
type formattedResult struct {
	resultDoc `yaml:",inline"`
	Duration  string `json:"duration" yaml:"duration"`
}

func (r Result) formatted() formattedResult {
	return formattedResult{resultDoc: resultDoc(r), Duration: r.Duration.String()}
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.formatted())
}

// MarshalYAML implements yaml.Marshaler.
func (r Result) MarshalYAML() (interface{}, error) {
	return r.formatted(), nil
}

func (r *Result) add(entry EntryResult) {
	r.Entries = append(r.Entries, entry)
	if entry.BucketAction == ActionCreated {
		r.BucketsCreated++
	}
	if entry.FlowAction == ActionCreated {
		r.FlowsCreated++
	}
	switch entry.VersionAction {
	case ActionCreated:
		r.VersionsCreated++
	case ActionExists:
		r.VersionsExisted++
	case ActionSkipped:
		r.EntriesSkipped++
	}
}
