package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDurationOrDefault parses a Go duration. Empty means def; a bare
// integer is taken as seconds.
func ParseDurationOrDefault(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		s = strconv.FormatInt(n, 10) + "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	return d, nil
}

func parseIntField(key, raw string, def int, lo, hi int) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		if def == 0 {
			return 0, fmt.Errorf("%s is required", key)
		}
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer: %q", key, raw)
	}
	if n < lo || (hi > 0 && n > hi) {
		if hi > 0 {
			return 0, fmt.Errorf("%s: must be in %d..%d, got %d", key, lo, hi, n)
		}
		return 0, fmt.Errorf("%s: must be >= %d, got %d", key, lo, n)
	}
	return n, nil
}

func parseIDField(key, raw string, required bool) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		if required {
			return 0, fmt.Errorf("%s is required", key)
		}
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer id: %q", key, raw)
	}
	return n, nil
}
