// Package affinity pins the processing thread to a set of CPU cores, used on
// big.LITTLE edge boards to keep detection on the fast cores
package affinity

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

// maxCores is the number of cores addressable by a mask
const maxCores = int(unsafe.Sizeof(uintptr(0)) * 8)

// platformCores are the fast core numbers of common Rockchip boards
var platformCores = map[string][]int{
	"rk3588": {4, 5, 6, 7},
	"rk3582": {4, 5},
	"rk3576": {4, 5, 6, 7},
	"rk3568": {0, 1, 2, 3},
	"rk3566": {0, 1, 2, 3},
	"rk3562": {0, 1, 2, 3},
}

// CoreMask calculates the core mask by passing in the CPU core numbers as a
// slice, eg: []int{4,5,6,7}
func CoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// ParseCores parses a core list such as "4-7", "0,2,4" or a platform name
// such as "rk3588" which selects that board's fast cores
func ParseCores(s string) ([]int, error) {

	s = strings.ToLower(strings.TrimSpace(s))

	if cores, ok := platformCores[s]; ok {
		return cores, nil
	}

	var cores []int

	for _, part := range strings.Split(s, ",") {

		part = strings.TrimSpace(part)

		lo, hi, isRange := strings.Cut(part, "-")

		start, err := strconv.Atoi(lo)

		if err != nil {
			return nil, fmt.Errorf("invalid core %q: %w", part, err)
		}

		end := start

		if isRange {
			if end, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("invalid core range %q: %w", part, err)
			}
		}

		if start < 0 || end < start || end >= maxCores {
			return nil, fmt.Errorf("invalid core range %q", part)
		}

		for c := start; c <= end; c++ {
			cores = append(cores, c)
		}
	}

	return cores, nil
}
