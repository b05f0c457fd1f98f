// v1
// internal/cache/keys.go
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// ZoneKey normalizes a zone identifier so lookups ignore surrounding space.
func ZoneKey(zone string) string {
	return strings.TrimSpace(zone)
}

// EvaluationKey hashes a crop and its reading values into a stable key.
// nil values are encoded distinctly from zero.
func EvaluationKey(crop string, values ...*float64) string {
	parts := []string{"evaluate", strings.ToLower(strings.TrimSpace(crop))}
	for _, v := range values {
		if v == nil {
			parts = append(parts, "-")
			continue
		}
		parts = append(parts, strconv.FormatFloat(*v, 'g', -1, 64))
	}
	return makeKey(parts...)
}

func makeKey(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}
