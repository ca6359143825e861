package catalog

import (
	"fmt"
	"strings"
)

// Mode distinguishes full backups from the two incremental flavors.
type Mode int

const (
	ModeInvalid Mode = iota
	ModeDiffPage
	ModeDiffPtrack
	ModeFull
)

// String renders the mode the way the record file spells it. An invalid
// mode renders as the empty string, matching the on-disk format.
func (m Mode) String() string {
	switch m {
	case ModeDiffPage:
		return "PAGE"
	case ModeDiffPtrack:
		return "PTRACK"
	case ModeFull:
		return "FULL"
	default:
		return ""
	}
}

// IsData reports whether the mode carries database files at all, i.e.
// whether the backup is subject to file validation and chain membership.
func (m Mode) IsData() bool {
	return m == ModeFull || m == ModeDiffPage || m == ModeDiffPtrack
}

// ParseMode parses a backup mode. Leading spaces are skipped and matching
// is a case-insensitive prefix match, so "full", "FULL" and "Full backup"
// all parse as ModeFull.
func ParseMode(value string) (Mode, error) {
	v := strings.TrimLeft(value, " \t")
	switch {
	case hasPrefixFold(v, "full"):
		return ModeFull, nil
	case hasPrefixFold(v, "page"):
		return ModeDiffPage, nil
	case hasPrefixFold(v, "ptrack"):
		return ModeDiffPtrack, nil
	}
	return ModeInvalid, fmt.Errorf("invalid backup mode %q", value)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
