// Package safe narrows integers with range checks. SQLite scans surface
// every numeric column as int64 while block index fields are unsigned, so
// each narrowing conversion is validated instead of silently truncated.
package safe

import (
	"fmt"
	"math"
)

// Uint32 converts a signed integer to uint32, failing on negatives and on
// values above math.MaxUint32.
func Uint32[T ~int | ~int32 | ~int64](v T) (uint32, error) {
	if v < 0 || int64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", v)
	}
	return uint32(v), nil
}
