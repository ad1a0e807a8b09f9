// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package importer

import (
	"fmt"
	"strings"

	"github.com/flowsync/flowsync/registry"
	"github.com/flowsync/flowsync/registry/transport"
)

// StorageLocation returns where a registry at registryURL keeps the given
// version of a flow.
func StorageLocation(registryURL, bucketID, flowID, version string) string {
	return fmt.Sprintf("%s%s/buckets/%s/flows/%s/versions/%s",
		registryURL, registry.APIPath, bucketID, flowID, version)
}

// RewriteStorageLocations points every versioned flow reference in the
// tree rooted at group at the registry found at registryURL. References
// already located there are left alone. The bucket, flow and version of
// each reference are kept. It returns the number of references changed.
func RewriteStorageLocations(group *transport.ProcessGroup, registryURL string) int {
	if group == nil {
		return 0
	}
	var rewritten int
	if coords := group.Coordinates; coords != nil && !strings.HasPrefix(coords.StorageLocation, registryURL) {
		coords.StorageLocation = StorageLocation(registryURL, coords.BucketID, coords.FlowID, coords.Version.String())
		rewritten++
	}
	for _, child := range group.ProcessGroups {
		rewritten += RewriteStorageLocations(child, registryURL)
	}
	return rewritten
}
