// Copyright 2020 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package nkversion reports the compiled-in kernel version, grounded
// on runsc/version (referenced from runsc/main.go to force it into
// the link, and printed by runsc/cli.Main's --version handling).
package nkversion

import "golang.org/x/mod/semver"

// version is overwritten at link time via -ldflags, exactly as the
// teacher's runsc/version.version is.
var version = "v0.0.0-dev"

// Version returns the compiled-in version string.
func Version() string {
	return version
}

// Canonical returns the version in canonical vMAJOR.MINOR.PATCH form
// (a prerelease suffix such as "-dev" is kept, build metadata is
// dropped), falling back to the raw string if it isn't valid semver.
// golang.org/x/mod/semver is used for the comparison logic
// rather than a hand-rolled string split, since gVisor already
// requires golang.org/x/mod.
func Canonical() string {
	if !semver.IsValid(version) {
		return version
	}
	return semver.Canonical(version)
}

// AtLeast reports whether the running kernel's version is >= other,
// using semver ordering. A version that isn't valid semver is always
// considered at least as new as any released version. The default
// "v0.0.0-dev" is valid semver and orders below every release.
func AtLeast(other string) bool {
	if !semver.IsValid(version) {
		return true
	}
	if !semver.IsValid(other) {
		return false
	}
	return semver.Compare(version, other) >= 0
}
