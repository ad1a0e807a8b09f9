// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package flows_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/cmd/v3"
	"github.com/juju/cmd/v3/cmdtesting"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/flowsync/flowsync/cmd/flowsync/flows"
	"github.com/flowsync/flowsync/internal/catalog"
)

type importAllSuite struct {
	testing.IsolationSuite

	source *fakeRegistry
	dest   *fakeRegistry
	dir    string
	clock  *testclock.Clock
}

var _ = gc.Suite(&importAllSuite{})

func (s *importAllSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.source = newFakeRegistry("http://source:18080")
	s.source.seed("alpha", "ingest", 2)
	s.source.seed("alpha", "publish", 1)
	s.dest = newFakeRegistry("http://dest:18080")
	s.dir = c.MkDir()
	s.clock = testclock.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func (s *importAllSuite) export(c *gc.C) {
	_, err := cmdtesting.RunCommand(c, flows.NewExportAllCommandForTest(s.source), s.dir)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *importAllSuite) runImport(c *gc.C, args ...string) (*cmd.Context, error) {
	return cmdtesting.RunCommand(c, flows.NewImportAllCommandForTest(s.dest, s.clock), args...)
}

func (s *importAllSuite) TestInitErrors(c *gc.C) {
	for i, test := range []struct {
		args []string
		err  string
	}{{
		args: nil,
		err:  "no input directory specified",
	}, {
		args: []string{"--input", "a", "b"},
		err:  "--input and a directory argument cannot both be given",
	}, {
		args: []string{"a", "b"},
		err:  `unrecognized args: \["b"\]`,
	}, {
		args: []string{"--format", "xml", "a"},
		err:  `invalid value "xml" for (flag|option) --format: unknown format "xml"`,
	}} {
		c.Logf("test %d: %v", i, test.args)
		err := cmdtesting.InitCommand(flows.NewImportAllCommandForTest(s.dest, s.clock), test.args)
		c.Check(err, gc.ErrorMatches, test.err)
	}
}

func (s *importAllSuite) TestImport(c *gc.C) {
	s.export(c)

	ctx, err := s.runImport(c, s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cmdtesting.Stdout(ctx), gc.Equals,
		"Import completed in 0s: 1 buckets, 2 flows and 3 flow versions created, 0 versions already present, 0 files skipped.\n")
	c.Check(cmdtesting.Stderr(ctx), gc.Equals, "")
	c.Check(s.dest.contents(), jc.DeepEquals, s.source.contents())
}

func (s *importAllSuite) TestImportTwiceChangesNothing(c *gc.C) {
	s.export(c)
	_, err := s.runImport(c, "--input", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	s.dest.ResetCalls()

	ctx, err := s.runImport(c, "--input", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cmdtesting.Stdout(ctx), gc.Equals,
		"Import completed in 0s: 0 buckets, 0 flows and 0 flow versions created, 3 versions already present, 0 files skipped.\n")
	c.Check(s.dest.mutations(), gc.HasLen, 0)
}

func (s *importAllSuite) TestImportAddsMissingVersions(c *gc.C) {
	s.export(c)
	s.dest.seed("alpha", "ingest", 1)

	ctx, err := s.runImport(c, s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cmdtesting.Stdout(ctx), gc.Equals,
		"Import completed in 0s: 0 buckets, 1 flows and 2 flow versions created, 1 versions already present, 0 files skipped.\n")
}

func (s *importAllSuite) TestImportSkipExisting(c *gc.C) {
	s.export(c)
	s.dest.seed("alpha", "ingest", 1)

	ctx, err := s.runImport(c, "--skip-existing", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cmdtesting.Stdout(ctx), gc.Equals,
		"Import completed in 0s: 0 buckets, 1 flows and 1 flow versions created, 0 versions already present, 2 files skipped.\n")
	c.Check(s.dest.mutations(), jc.DeepEquals, []string{"CreateFlow", "CreateVersion"})
}

func (s *importAllSuite) TestImportInteractive(c *gc.C) {
	s.export(c)

	ctx, err := s.runImport(c, "--interactive", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	stderr := cmdtesting.Stderr(ctx)
	for _, note := range []string{
		"Collecting buckets, flows and flow versions...\n",
		"All flow versions collected...\n",
		"Importing ingest - 1 to alpha\n",
		"Successfully imported ingest - 1 to alpha\n",
		"alpha already exists, skipping bucket creation...\n",
		"Successfully imported publish - 1 to alpha\n",
	} {
		c.Check(strings.Contains(stderr, note), jc.IsTrue, gc.Commentf("missing %q in %q", note, stderr))
	}
}

func (s *importAllSuite) TestImportTabular(c *gc.C) {
	s.export(c)

	ctx, err := s.runImport(c, "--format", "tabular", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(cmdtesting.Stdout(ctx)), "\n") {
		rows = append(rows, strings.Fields(line))
	}
	c.Check(rows, jc.DeepEquals, [][]string{
		{"BUCKET", "FLOW", "VERSION", "BUCKET-STATUS", "FLOW-STATUS", "VERSION-STATUS", "STORED-AS"},
		{"alpha", "ingest", "1", "created", "created", "created", "1"},
		{"alpha", "ingest", "2", "exists", "exists", "created", "2"},
		{"alpha", "publish", "1", "exists", "created", "created", "1"},
	})
}

func (s *importAllSuite) TestImportTabularEmpty(c *gc.C) {
	ctx, err := s.runImport(c, "--format", "tabular", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cmdtesting.Stdout(ctx), gc.Equals, "No export files found.\n")
}

func (s *importAllSuite) TestImportYAML(c *gc.C) {
	s.export(c)

	ctx, err := s.runImport(c, "--format", "yaml", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	out := cmdtesting.Stdout(ctx)
	for _, line := range []string{
		"versions-created: 3\n",
		"duration: 0s\n",
		"- bucket: alpha\n",
		"  flow: publish\n",
		"  version-action: created\n",
	} {
		c.Check(strings.Contains(out, line), jc.IsTrue, gc.Commentf("missing %q in %q", line, out))
	}
}

func (s *importAllSuite) TestImportJSON(c *gc.C) {
	s.export(c)

	ctx, err := s.runImport(c, "--format", "json", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	var out map[string]interface{}
	err = json.Unmarshal([]byte(cmdtesting.Stdout(ctx)), &out)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out["duration"], gc.Equals, "0s")
	c.Check(out["versions-created"], gc.Equals, float64(3))
	c.Check(out["entries"], gc.HasLen, 3)
}

func (s *importAllSuite) TestImportRelativeInput(c *gc.C) {
	parent := filepath.Dir(s.dir)
	s.export(c)

	ctx, err := cmdtesting.RunCommandInDir(c,
		flows.NewImportAllCommandForTest(s.dest, s.clock), []string{filepath.Base(s.dir)}, parent)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cmdtesting.Stdout(ctx), gc.Matches, "Import completed in 0s: 1 buckets, .*\n")
}

func (s *importAllSuite) TestImportMetricsFile(c *gc.C) {
	s.export(c)

	ctx, err := s.runImport(c, "--metrics-file", "import.prom", s.dir)
	c.Assert(err, jc.ErrorIsNil)
	data, err := os.ReadFile(filepath.Join(ctx.Dir, "import.prom"))
	c.Assert(err, jc.ErrorIsNil)
	metrics := string(data)
	for _, line := range []string{
		`flowsync_import_entities_total{action="created",kind="bucket"} 1`,
		`flowsync_import_entities_total{action="exists",kind="bucket"} 2`,
		`flowsync_import_entities_total{action="created",kind="flow"} 2`,
		`flowsync_import_entities_total{action="created",kind="version"} 3`,
		`flowsync_import_run_duration_seconds 0`,
	} {
		c.Check(strings.Contains(metrics, line+"\n"), jc.IsTrue, gc.Commentf("missing %q in %q", line, metrics))
	}
}

func (s *importAllSuite) TestImportBadExportFile(c *gc.C) {
	path := filepath.Join(s.dir, catalog.FileName("alpha", "ingest", 1))
	err := os.WriteFile(path, []byte("not json"), 0644)
	c.Assert(err, jc.ErrorIsNil)

	ctx, err := s.runImport(c, "--metrics-file", "import.prom", s.dir)
	c.Assert(err, gc.ErrorMatches, `importing .*toolkit_registry_export_all_alpha_ingest_1: export file content: .*`)
	c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
	c.Check(s.dest.mutations(), gc.HasLen, 0)

	_, err = os.Stat(filepath.Join(ctx.Dir, "import.prom"))
	c.Check(err, jc.ErrorIsNil)
}

func (s *importAllSuite) TestImportMissingDirectory(c *gc.C) {
	_, err := s.runImport(c, filepath.Join(s.dir, "missing"))
	c.Assert(err, gc.ErrorMatches, "file listing failed: .*")
	c.Check(s.dest.Calls(), gc.HasLen, 0)
}

func (s *importAllSuite) TestImportRegistryError(c *gc.C) {
	s.export(c)
	s.dest.SetErrors(errors.New("registry down"))

	_, err := s.runImport(c, s.dir)
	c.Assert(err, gc.ErrorMatches, "reading registry contents: registry down")
	c.Check(s.dest.mutations(), gc.HasLen, 0)
}
