package avcore

import (
	"fmt"

	"github.com/blang/semver"
)

// Version is the wire version of §3: major:8, minor:8, bugfix:16,
// totally ordered. It forwards comparison to semver.Version rather
// than reimplementing range/compare logic, the way the teacher's
// update checker compares CURRENT_VERSION against a fetched latest
// (krd/latest_version.go, src/common/version) via semver.LT.
type Version struct {
	Major  uint8
	Minor  uint8
	Bugfix uint16
}

func (v Version) semver() semver.Version {
	return semver.Version{Major: uint64(v.Major), Minor: uint64(v.Minor), Patch: uint64(v.Bugfix)}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other.
func (v Version) Compare(other Version) int {
	return v.semver().Compare(other.semver())
}

// LT, GTE and Equal are convenience wrappers over Compare, matching
// the call sites a version-gated reader needs (§4.1 versioning
// discipline: "readers MUST accept any minor version >= the minimum
// they know").
func (v Version) LT(other Version) bool   { return v.Compare(other) < 0 }
func (v Version) GTE(other Version) bool  { return v.Compare(other) >= 0 }
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Bugfix)
}

// Wire encodes the version as the 16-bit (major:8, minor:8) pair used
// on the wire for payload format versions (§4.1). Bugfix is carried
// out of band in the few payloads that need it; most don't.
func (v Version) Wire() uint16 {
	return uint16(v.Major)<<8 | uint16(v.Minor)
}

// VersionFromWire decodes the 16-bit (major:8, minor:8) wire form.
// Bugfix is left zero; callers that need it read it from a separate
// field, per §4.1.
func VersionFromWire(w uint16) Version {
	return Version{Major: uint8(w >> 8), Minor: uint8(w & 0xff)}
}
