package rating

import (
	"fmt"
	"strconv"
)

var scales = []struct {
	unit   float64
	suffix string
}{
	{1_000_000_000, "b"},
	{1_000_000, "m"},
	{1_000, "k"},
}

// Format renders a rating for display, e.g. 1500 -> "1.5k". Values below one
// thousand in magnitude are printed as plain integers.
func Format(r int) string {
	abs := r
	if abs < 0 {
		abs = -abs
	}
	for _, s := range scales {
		if float64(abs) >= s.unit {
			return fmt.Sprintf("%.1f%s", float64(r)/s.unit, s.suffix)
		}
	}
	return strconv.Itoa(r)
}
