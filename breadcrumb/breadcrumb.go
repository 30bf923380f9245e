// Package breadcrumb turns the ordered navigational labels of a listing page
// into the structured locale fields shared by all three sites. Parsing is
// pure: the same labels always produce the same fields.
package breadcrumb

import (
	"regexp"
	"strings"
)

// Fields holds the locale hierarchy derived from a breadcrumb path. Every
// field is optional; an empty string means absent.
type Fields struct {
	Category       string
	Region         string
	DistrictLevel2 string
	SubDistrict    string
	EstateName     string
}

// Arity is the number of hierarchy levels a site's breadcrumb carries.
// Five-level sites (centanet, ricacorp) populate SubDistrict; four-level
// sites (28hse) never do.
const (
	ArityFourLevel = 4
	ArityFiveLevel = 5
)

var (
	// sentinels are the "home" labels every site prefixes its breadcrumb
	// with. 28hse stacks a second one (地產主頁) after the first.
	sentinels = map[string]bool{
		"主頁":   true,
		"主页":   true,
		"首頁":   true,
		"Home": true,
		"地產主頁": true,
	}

	// blockToken matches a bare building block/wing entry such as 4座, 36座,
	// j座 or J座. Those duplicate the estate entry before them and are not a
	// hierarchy level of their own.
	blockToken = regexp.MustCompile(`^[0-9A-Za-z]{1,4}座$`)

	// placeholders are "no estate" tokens the sites emit instead of leaving
	// the entry out. They map to absent, never to an empty-string value.
	placeholders = map[string]bool{
		"屋苑":   true,
		"未知":   true,
		"N/A":  true,
		"n/a":  true,
		"-":    true,
		"--":   true,
		"暫無資料": true,
	}
)

// IsPlaceholder reports whether the label is a known "no value" token.
func IsPlaceholder(label string) bool {
	return placeholders[strings.TrimSpace(label)]
}

// IsBlockToken reports whether the label is a bare building-block entry.
func IsBlockToken(label string) bool {
	return blockToken.MatchString(strings.TrimSpace(label))
}

// Parse maps ordered breadcrumb labels onto locale fields for a site of the
// given arity, and rebuilds the cleaned, sentinel-prefixed path for audit.
//
// Cleaning steps, in order: drop leading sentinels, drop a trailing bare
// block token when the entry before it is non-empty, collapse an entry equal
// to its immediate predecessor (first occurrence kept). Fewer than two
// entries after cleaning leave every derived field absent; the audit string
// is still produced from whatever remains.
func Parse(labels []string, arity int) (Fields, string) {
	parts := clean(labels)

	audit := ""
	if len(parts) > 0 {
		audit = "主頁 > " + strings.Join(parts, " > ")
	}

	var f Fields
	if len(parts) < 2 {
		return f, audit
	}

	f.Category = parts[0]
	f.Region = parts[1]
	if len(parts) >= 3 {
		f.DistrictLevel2 = parts[2]
	}
	if arity >= ArityFiveLevel && len(parts) >= 5 {
		f.SubDistrict = parts[3]
	}
	// The estate is the last remaining entry, but only once the path is deep
	// enough that it cannot be one of the upper levels.
	if len(parts) >= 4 {
		if last := parts[len(parts)-1]; !IsPlaceholder(last) {
			f.EstateName = last
		}
	}
	return f, audit
}

// clean applies the sentinel, block-token and duplicate rules and returns
// trimmed, non-empty entries.
func clean(labels []string) []string {
	trimmed := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		trimmed = append(trimmed, l)
	}

	for len(trimmed) > 0 && sentinels[trimmed[0]] {
		trimmed = trimmed[1:]
	}

	if n := len(trimmed); n >= 2 && IsBlockToken(trimmed[n-1]) && trimmed[n-2] != "" {
		trimmed = trimmed[:n-1]
	}

	parts := make([]string, 0, len(trimmed))
	var prev string
	for _, l := range trimmed {
		if l == prev {
			continue
		}
		parts = append(parts, l)
		prev = l
	}
	return parts
}
