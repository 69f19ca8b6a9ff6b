package textutil

import (
	"fmt"
	"regexp"
	"strings"
)

var spaceRunRE = regexp.MustCompile(`\s+`)

// Slugify lower-cases s and replaces each run of whitespace with a dash:
// "Sophia Martinez" becomes "sophia-martinez".
func Slugify(s string) string {
	return spaceRunRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// LastDashField is what follows the last dash, or s itself if it has none.
func LastDashField(s string) string {
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// FormatCount abbreviates large counts: 950, 1.2K, 425K, 3.4M.
func FormatCount(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	var s string
	switch {
	case n < 1000:
		s = fmt.Sprintf("%d", n)
	case n < 1_000_000:
		s = trimZero(fmt.Sprintf("%.1f", float64(n)/1e3)) + "K"
	case n < 1_000_000_000:
		s = trimZero(fmt.Sprintf("%.1f", float64(n)/1e6)) + "M"
	default:
		s = trimZero(fmt.Sprintf("%.1f", float64(n)/1e9)) + "B"
	}
	if neg {
		return "-" + s
	}
	return s
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
