package config

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Size multipliers are binary: 1 KB = 1024 bytes.
const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
	GB int64 = 1 << 30
)

var sizePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(GB|MB|KB|B)?$`)

// ParseSize converts a human size such as "500MB", "1.5 GB" or "1024" into
// bytes. A bare number is bytes. Fractional results are truncated.
func ParseSize(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid size %q (expected e.g. 500MB, 1.5GB, 1024)", s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	mult := int64(1)
	switch strings.ToUpper(m[2]) {
	case "KB":
		mult = KB
	case "MB":
		mult = MB
	case "GB":
		mult = GB
	}
	bytes := n * float64(mult)
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}
	return int64(bytes), nil
}
