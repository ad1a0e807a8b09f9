// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package catalog finds exported flow version files in a directory. All
// it knows about a file comes from its name; the content is not read.
package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("flowsync.catalog")

const (
	// FilePrefix starts the name of every exported flow version file.
	FilePrefix = "toolkit_registry_export_all_"

	// Separator delimits the fields of an export file name. Bucket and
	// flow names containing it cannot be told apart from the next field.
	Separator = "_"
)

// Positions of the fields in an export file name split on Separator.
const (
	bucketField  = 4
	flowField    = 5
	versionField = 6
	minFields    = versionField + 1
)

// Entry describes one exported flow version file.
type Entry struct {
	// Path is the location of the file.
	Path string

	BucketName string
	FlowName   string
	Version    int
}

// FileName returns the name of the export file for a flow version.
func FileName(bucketName, flowName string, version int) string {
	return FilePrefix + bucketName + Separator + flowName + Separator + strconv.Itoa(version)
}

// ParseFileName extracts the bucket name, flow name and version from the
// name of an export file, which must start with FilePrefix.
func ParseFileName(name string) (Entry, error) {
	if !strings.HasPrefix(name, FilePrefix) {
		return Entry{}, errors.NotValidf("export file name %q", name)
	}
	fields := strings.Split(name, Separator)
	if len(fields) < minFields {
		return Entry{}, errors.NotValidf("export file name %q with %d fields", name, len(fields))
	}
	version, err := strconv.Atoi(fields[versionField])
	if err != nil {
		return Entry{}, errors.NewNotValid(err, "version of export file "+strconv.Quote(name))
	}
	return Entry{
		BucketName: fields[bucketField],
		FlowName:   fields[flowField],
		Version:    version,
	}, nil
}

// Scan returns the export files found directly in dir, sorted by bucket
// name, flow name and version. Versions of a flow therefore come out
// oldest first, which is the order they must be imported in.
func Scan(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Annotate(err, "file listing failed")
	}

	var entries []Entry
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if !strings.HasPrefix(name, FilePrefix) {
			continue
		}
		path := filepath.Join(dir, name)
		// Stat rather than the directory entry type, so that links to
		// regular files are picked up as well.
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			logger.Debugf("skipping %s: dangling link", name)
			continue
		} else if err != nil {
			return nil, errors.Annotate(err, "file listing failed")
		}
		if !info.Mode().IsRegular() {
			continue
		}

		entry, err := ParseFileName(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		entry.Path = path
		entries = append(entries, entry)
	}

	Sort(entries)
	return entries, nil
}

// Sort orders entries by bucket name, flow name and version.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.BucketName != b.BucketName {
			return a.BucketName < b.BucketName
		}
		if a.FlowName != b.FlowName {
			return a.FlowName < b.FlowName
		}
		return a.Version < b.Version
	})
}
