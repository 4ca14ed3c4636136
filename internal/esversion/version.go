// Package esversion determines and compares Elasticsearch versions.
//
// Versions are dotted numeric strings compared segment by segment as
// integers, so "1.2.3" sorts below "1.10.0". Missing trailing segments
// count as zero: "5.6" and "5.6.0" are equal.
package esversion

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed dotted version.
type Version []int

// Parse parses a dotted numeric version string.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}

	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version %q: segment %q is not a non-negative integer", s, part)
		}
		v[i] = n
	}
	return v, nil
}

// Cmp compares v against o, returning -1, 0 or 1. Versions with unequal
// segment counts are compared as if the shorter one were zero-extended.
func (v Version) Cmp(o Version) int {
	n := len(v)
	if len(o) > n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		var a, b int
		if i < len(v) {
			a = v[i]
		}
		if i < len(o) {
			b = o[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// String returns the dotted form of the version.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare parses both version strings and compares them numerically,
// returning -1, 0 or 1.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Cmp(vb), nil
}
