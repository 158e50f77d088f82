// Package version parses and compares PowerShell module versions.
//
// Module versions on the gallery use two to four dot-separated numeric
// segments (for example "13.2.1" or "13.2.1.22851661"). Missing trailing
// segments compare as zero, so "13.2" and "13.2.0.0" are equal.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
)

const (
	minSegments = 2
	maxSegments = 4
)

// Normalize validates raw and returns its canonical form: a leading "v" or
// "V" stripped, surrounding whitespace removed, and no segment padding
// applied. Prerelease suffixes are rejected; the installer only handles
// stable gallery releases.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "v")
	s = strings.TrimPrefix(s, "V")
	if s == "" {
		return "", fmt.Errorf(messages.VersionEmptyFmt, raw)
	}
	if _, err := parse(s); err != nil {
		return "", err
	}
	return s, nil
}

// Compare returns -1, 0, or 1 ordering a relative to b. Both arguments must
// be normalized versions; Compare errors if either fails to parse.
func Compare(a, b string) (int, error) {
	sa, err := parse(a)
	if err != nil {
		return 0, err
	}
	sb, err := parse(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < maxSegments; i++ {
		va, vb := segmentAt(sa, i), segmentAt(sb, i)
		if va < vb {
			return -1, nil
		}
		if va > vb {
			return 1, nil
		}
	}
	return 0, nil
}

// Max returns the highest version in versions. Entries that fail to parse
// produce an error rather than being skipped.
func Max(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", fmt.Errorf(messages.VersionNoneAvailable)
	}
	best := versions[0]
	for _, v := range versions[1:] {
		cmp, err := Compare(v, best)
		if err != nil {
			return "", err
		}
		if cmp > 0 {
			best = v
		}
	}
	if _, err := parse(best); err != nil {
		return "", err
	}
	return best, nil
}

func parse(s string) ([]int, error) {
	parts := strings.Split(s, ".")
	if len(parts) < minSegments || len(parts) > maxSegments {
		return nil, fmt.Errorf(messages.VersionSegmentCountFmt, s, minSegments, maxSegments)
	}
	segs := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf(messages.VersionMalformedFmt, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf(messages.VersionMalformedFmt, s)
		}
		segs = append(segs, n)
	}
	return segs, nil
}

func segmentAt(segs []int, i int) int {
	if i < len(segs) {
		return segs[i]
	}
	return 0
}
