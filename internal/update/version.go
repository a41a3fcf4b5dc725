package update

import (
	"strings"

	"github.com/blang/semver/v4"
)

// IsNewer reports whether candidate is a newer version than current.
//
// Both strings are parsed as strict semantic versions (major.minor.patch with
// optional pre-release and build metadata, no "v" prefix). When either fails
// to parse, the comparison falls back to plain string ordering: candidate is
// newer iff it differs from current and sorts after it. The fallback
// misorders numeric components of different widths ("9" sorts after "10");
// callers that care should pass normalized versions.
func IsNewer(current, candidate string) bool {
	cur, curErr := semver.Parse(current)
	cand, candErr := semver.Parse(candidate)
	if curErr == nil && candErr == nil {
		return cand.GT(cur)
	}
	return current != candidate && candidate > current
}

// IsSemver reports whether v parses as a strict semantic version.
func IsSemver(v string) bool {
	_, err := semver.Parse(v)
	return err == nil
}

// NormalizeTag strips a single leading "v" from a release tag.
// "v1.2.3" and "1.2.3" both yield "1.2.3"; "vv1" yields "v1".
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(tag, "v")
}
