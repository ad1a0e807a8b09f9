// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package version holds the version of the flowsync tools.
package version

import (
	semversion "github.com/juju/version/v2"
)

// The presence and format of this constant is very important.
// The CI build scripts check this value when tagging a release.
const version = "1.2.0"

// Current gives the current version of the flowsync tools.
var Current = semversion.MustParse(version)
