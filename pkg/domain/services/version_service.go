package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// VersionComparator orders BOM versions with numeric awareness, so "V10" sorts after "V9"
type VersionComparator struct {
	versionPattern *regexp.Regexp
}

// NewVersionComparator creates a comparator for versions like "A", "V2", "REV10" or "3"
func NewVersionComparator() *VersionComparator {
	return &VersionComparator{
		versionPattern: regexp.MustCompile(`^([A-Za-z]*)(\d+)$`),
	}
}

// Compare returns -1, 0 or 1 as v1 is older, equal or newer than v2
func (vc *VersionComparator) Compare(v1, v2 string) int {
	if v1 == v2 {
		return 0
	}

	prefix1, num1, err1 := vc.parseVersion(v1)
	prefix2, num2, err2 := vc.parseVersion(v2)

	// Plain letter revisions and other formats fall back to string order
	if err1 != nil || err2 != nil {
		return strings.Compare(v1, v2)
	}
	if prefix1 != prefix2 {
		return strings.Compare(prefix1, prefix2)
	}
	switch {
	case num1 < num2:
		return -1
	case num1 > num2:
		return 1
	default:
		return 0
	}
}

func (vc *VersionComparator) parseVersion(version string) (string, int, error) {
	matches := vc.versionPattern.FindStringSubmatch(version)
	if len(matches) != 3 {
		return "", 0, fmt.Errorf("invalid version format: %s", version)
	}
	num, err := strconv.Atoi(matches[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid numeric portion in version %s: %v", version, err)
	}
	return strings.ToUpper(matches[1]), num, nil
}

// Latest returns the newest bill of material among versions of the same parent
func (vc *VersionComparator) Latest(boms []*entities.BillOfMaterial) *entities.BillOfMaterial {
	var latest *entities.BillOfMaterial
	for _, b := range boms {
		if latest == nil || vc.Compare(b.Version, latest.Version) > 0 {
			latest = b
		}
	}
	return latest
}
