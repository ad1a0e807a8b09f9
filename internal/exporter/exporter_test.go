// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package exporter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/flowsync/flowsync/internal/catalog"
	"github.com/flowsync/flowsync/internal/exporter"
	"github.com/flowsync/flowsync/registry/transport"
)

type exporterSuite struct {
	testing.IsolationSuite

	dir    string
	source *fakeSource
}

var _ = gc.Suite(&exporterSuite{})

func (s *exporterSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.dir = filepath.Join(c.MkDir(), "export")
	s.source = &fakeSource{
		buckets: []transport.Bucket{
			{Identifier: "b-10", Name: "bucket10"},
			{Identifier: "b-2", Name: "bucket2"},
		},
		flows: map[string][]transport.Flow{
			"b-10": {{Identifier: "f-3", Name: "ingest", BucketIdentifier: "b-10"}},
			"b-2": {
				{Identifier: "f-2", Name: "publish", BucketIdentifier: "b-2"},
				{Identifier: "f-1", Name: "ingest", BucketIdentifier: "b-2"},
			},
		},
		versions: map[string][]int{
			"f-1": {2, 1},
			"f-2": {1},
			"f-3": {},
		},
	}
}

func (s *exporterSuite) newExporter(c *gc.C, overwrite bool) *exporter.Exporter {
	e, err := exporter.NewExporter(exporter.Config{
		Source:    s.source,
		Overwrite: overwrite,
		Logger:    loggo.GetLogger("flowsync.exporter"),
	})
	c.Assert(err, jc.ErrorIsNil)
	return e
}

func (s *exporterSuite) TestValidate(c *gc.C) {
	_, err := exporter.NewExporter(exporter.Config{Logger: loggo.GetLogger("test")})
	c.Assert(err, gc.ErrorMatches, "nil Source not valid")
	_, err = exporter.NewExporter(exporter.Config{Source: s.source})
	c.Assert(err, gc.ErrorMatches, "nil Logger not valid")
}

func (s *exporterSuite) TestExportDir(c *gc.C) {
	result, err := s.newExporter(c, false).ExportDir(context.Background(), s.dir)
	c.Assert(err, jc.ErrorIsNil)

	var names []string
	for _, file := range result.Files {
		names = append(names, filepath.Base(file.Path))
		c.Check(file.Size > 0, jc.IsTrue)
	}
	// bucket2 comes before bucket10 in natural order.
	c.Assert(names, jc.DeepEquals, []string{
		"toolkit_registry_export_all_bucket2_ingest_1",
		"toolkit_registry_export_all_bucket2_ingest_2",
		"toolkit_registry_export_all_bucket2_publish_1",
	})
	c.Check(result.Buckets, gc.Equals, 2)
	c.Check(result.Flows, gc.Equals, 3)

	s.source.CheckCall(c, 0, "ListBuckets")
}

func (s *exporterSuite) TestExportedFilesRoundTrip(c *gc.C) {
	_, err := s.newExporter(c, false).ExportDir(context.Background(), s.dir)
	c.Assert(err, jc.ErrorIsNil)

	entries, err := catalog.Scan(s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(entries, gc.HasLen, 3)
	c.Check(entries[1].BucketName, gc.Equals, "bucket2")
	c.Check(entries[1].FlowName, gc.Equals, "ingest")
	c.Check(entries[1].Version, gc.Equals, 2)

	data, err := os.ReadFile(entries[1].Path)
	c.Assert(err, jc.ErrorIsNil)
	var snapshot transport.Snapshot
	c.Assert(json.Unmarshal(data, &snapshot), jc.ErrorIsNil)
	// The registry left the sections out; they are filled in.
	c.Check(snapshot.Bucket.Identifier, gc.Equals, "b-2")
	c.Check(snapshot.Flow.Identifier, gc.Equals, "f-1")
	c.Check(snapshot.Metadata.Version, gc.Equals, 2)
	c.Check(snapshot.Extra, gc.HasLen, 1)
}

func (s *exporterSuite) TestExistingFile(c *gc.C) {
	err := os.MkdirAll(s.dir, 0755)
	c.Assert(err, jc.ErrorIsNil)
	existing := filepath.Join(s.dir, catalog.FileName("bucket2", "ingest", 1))
	err = os.WriteFile(existing, []byte("old"), 0644)
	c.Assert(err, jc.ErrorIsNil)

	_, err = s.newExporter(c, false).ExportDir(context.Background(), s.dir)
	c.Assert(err, jc.Satisfies, errors.IsAlreadyExists)

	_, err = s.newExporter(c, true).ExportDir(context.Background(), s.dir)
	c.Assert(err, jc.ErrorIsNil)
	data, err := os.ReadFile(existing)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(string(data), gc.Not(gc.Equals), "old")
}

func (s *exporterSuite) TestSourceError(c *gc.C) {
	s.source.SetErrors(nil, errors.New("listing flows: boom"))

	_, err := s.newExporter(c, false).ExportDir(context.Background(), s.dir)
	c.Assert(err, gc.ErrorMatches, "listing flows: boom")
	s.source.CheckCallNames(c, "ListBuckets", "ListFlows")
}

func (s *exporterSuite) TestWarnsAboutSeparator(c *gc.C) {
	s.source.buckets = []transport.Bucket{{Identifier: "b-1", Name: "my_bucket"}}
	s.source.flows = map[string][]transport.Flow{"b-1": nil}

	logger := &recordingLogger{Logger: loggo.GetLogger("flowsync.exporter")}
	e, err := exporter.NewExporter(exporter.Config{
		Source: s.source,
		Logger: logger,
	})
	c.Assert(err, jc.ErrorIsNil)

	_, err = e.ExportDir(context.Background(), s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(logger.warnings, jc.DeepEquals, []string{
		`bucket name "my_bucket" contains "_", its export files cannot be imported`,
	})
}

func (s *exporterSuite) TestRejectsNamesLeavingExportDir(c *gc.C) {
	for i, test := range []struct {
		bucket string
		flow   string
		err    string
	}{{
		bucket: "x/../../../escaped",
		flow:   "flow",
		err:    `bucket name "x/../../../escaped" not valid`,
	}, {
		bucket: "bucket",
		flow:   `..\flow`,
		err:    `flow name "\.\.\\\\flow" not valid`,
	}, {
		bucket: "bucket",
		flow:   "nested/flow",
		err:    `flow name "nested/flow" not valid`,
	}} {
		c.Logf("test %d: %q %q", i, test.bucket, test.flow)
		root := c.MkDir()
		dir := filepath.Join(root, "a", "b", "export")
		s.source.buckets = []transport.Bucket{{Identifier: "b-1", Name: test.bucket}}
		s.source.flows = map[string][]transport.Flow{
			"b-1": {{Identifier: "f-1", Name: test.flow, BucketIdentifier: "b-1"}},
		}
		s.source.versions = map[string][]int{"f-1": {1}}

		_, err := s.newExporter(c, false).ExportDir(context.Background(), dir)
		c.Check(err, gc.ErrorMatches, test.err)
		c.Check(err, jc.Satisfies, errors.IsNotValid)

		var written []string
		walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err == nil && info.Mode().IsRegular() {
				written = append(written, path)
			}
			return err
		})
		c.Assert(walkErr, jc.ErrorIsNil)
		c.Check(written, gc.HasLen, 0)
	}
}

type recordingLogger struct {
	loggo.Logger
	warnings []string
}

func (l *recordingLogger) Warningf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

type fakeSource struct {
	testing.Stub

	buckets  []transport.Bucket
	flows    map[string][]transport.Flow
	versions map[string][]int
}

func (f *fakeSource) ListBuckets(ctx context.Context) ([]transport.Bucket, error) {
	f.MethodCall(f, "ListBuckets")
	return f.buckets, f.NextErr()
}

func (f *fakeSource) ListFlows(ctx context.Context, bucketID string) ([]transport.Flow, error) {
	f.MethodCall(f, "ListFlows", bucketID)
	return f.flows[bucketID], f.NextErr()
}

func (f *fakeSource) ListVersions(ctx context.Context, flowID string) ([]transport.SnapshotMetadata, error) {
	f.MethodCall(f, "ListVersions", flowID)
	var metadata []transport.SnapshotMetadata
	for _, v := range f.versions[flowID] {
		metadata = append(metadata, transport.SnapshotMetadata{FlowIdentifier: flowID, Version: v})
	}
	return metadata, f.NextErr()
}

func (f *fakeSource) GetVersion(ctx context.Context, bucketID, flowID string, version int) (transport.Snapshot, error) {
	f.MethodCall(f, "GetVersion", bucketID, flowID, version)
	if err := f.NextErr(); err != nil {
		return transport.Snapshot{}, err
	}
	return transport.Snapshot{
		Metadata: &transport.SnapshotMetadata{
			BucketIdentifier: bucketID,
			FlowIdentifier:   flowID,
			Version:          version,
		},
		FlowContents: &transport.ProcessGroup{},
		Extra: transport.Members{
			"flowEncodingVersion": json.RawMessage(`"1.0"`),
		},
	}, nil
}
