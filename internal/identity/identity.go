// Package identity derives the canonical video identity that joins all
// artifact kinds produced for one physical video.
//
// Every artifact tree in the dataset names files differently: raw videos,
// feature vectors, timestamp maps, and media metadata carry the identity in
// the filename itself (L21_V001.mp4), while keyframes and detection files are
// either prefixed (L21_V001_001.jpg) or numerically named inside a per-video
// directory (keyframes/L21_V001/001.jpg). FromPath applies those conventions
// in a fixed order so the same path always resolves to the same identity.
package identity

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ID is a canonical video identity of the form L<level>_V<number>.
type ID string

var canonicalPattern = regexp.MustCompile(`^L(\d+)_V(\d+)$`)

// FromPath resolves a file path to a video identity. The second return value
// is false when no convention matches; such paths are excluded from
// correlation entirely.
func FromPath(path string) (ID, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	// Per-video files carry the identity directly (L21_V001.csv).
	if canonicalPattern.MatchString(stem) {
		return ID(stem), true
	}

	// Prefixed keyframe/detection names (L21_V001_001.jpg).
	if strings.Contains(stem, "_") {
		parts := strings.Split(stem, "_")
		if len(parts) >= 2 {
			return ID(parts[0] + "_" + parts[1]), true
		}
	}

	// Numerically named files inside a per-video directory, the production
	// layout for keyframes and objects (keyframes/L21_V001/001.jpg).
	parent := filepath.Base(filepath.Dir(path))
	if canonicalPattern.MatchString(parent) {
		return ID(parent), true
	}

	return "", false
}

// Components splits a canonical identity into its level and sequence number.
// Identities produced by the prefixed-name rule are not guaranteed to be
// canonical; ok is false for those.
func (id ID) Components() (level, number int, ok bool) {
	m := canonicalPattern.FindStringSubmatch(string(id))
	if m == nil {
		return 0, 0, false
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	number, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return level, number, true
}

// Display returns the human-facing form used on overlay banners
// ("L21_V001" becomes "L21 V001").
func (id ID) Display() string {
	return strings.ReplaceAll(string(id), "_", " ")
}
