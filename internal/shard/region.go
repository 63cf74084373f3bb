// Package shard drives a profile's country change through an audited
// migration:
//
//	INITIATED ──► (IN_PROGRESS) ──► COMPLETED
//	                    │
//	                    └─────────► FAILED
//
// IN_PROGRESS is collapsed into the persistence step. ROLLED_BACK is a
// reserved terminal state with no producer.
package shard

import "strings"

// Region is a coarse placement label used for audit routing only.
type Region string

const (
	RegionAPAC     Region = "APAC"
	RegionEMEA     Region = "EMEA"
	RegionAmericas Region = "AMERICAS"
	RegionDefault  Region = "DEFAULT"
)

// regionTable is checked in order; the first substring hit wins.
var regionTable = []struct {
	region    Region
	countries []string
}{
	{RegionAPAC, []string{"VIETNAM", "SINGAPORE", "AUSTRALIA", "JAPAN", "CHINA", "KOREA", "INDIA", "MALAYSIA", "THAILAND", "INDONESIA", "PHILIPPINES"}},
	{RegionEMEA, []string{"GERMANY", "UNITED KINGDOM", "UK", "FRANCE", "ITALY", "SPAIN", "NETHERLANDS", "SWEDEN", "NORWAY", "DENMARK", "SWITZERLAND"}},
	{RegionAmericas, []string{"UNITED STATES", "USA", "CANADA", "BRAZIL", "MEXICO", "ARGENTINA"}},
}

// RegionFor maps a free-form country name to its region.
func RegionFor(country *string) Region {
	if country == nil {
		return RegionDefault
	}
	c := strings.ToUpper(strings.TrimSpace(*country))
	if c == "" {
		return RegionDefault
	}
	for _, row := range regionTable {
		for _, name := range row.countries {
			if strings.Contains(c, name) {
				return row.region
			}
		}
	}
	return RegionDefault
}

// RequiresMigration reports whether moving from prev to next changes the
// shard key. Comparison ignores case; a nil on exactly one side always
// migrates.
func RequiresMigration(prev, next *string) bool {
	switch {
	case prev == nil && next == nil:
		return false
	case prev == nil || next == nil:
		return true
	}
	return !strings.EqualFold(*prev, *next)
}
