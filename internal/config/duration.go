package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// parseDurationExtended parses Go-style duration strings and adds support for:
// - d (days) where 1d = 24h
// - w (weeks) where 1w = 7d
// - a bare integer, read as seconds
//
// Examples: "45m", "12h", "1d", "1w2d", "3600".
func parseDurationExtended(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("duration is required")
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	if !strings.ContainsAny(raw, "dw") {
		return time.ParseDuration(raw)
	}

	expanded, err := expandDaysWeeks(raw)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(expanded)
}

// expandDaysWeeks rewrites d and w components as hours so time.ParseDuration
// can handle the result.
func expandDaysWeeks(raw string) (string, error) {
	s := raw
	var b strings.Builder
	if s[0] == '+' || s[0] == '-' {
		b.WriteByte(s[0])
		s = s[1:]
	}
	if s == "" {
		return "", fmt.Errorf("invalid duration %q", raw)
	}

	for s != "" {
		n := strings.IndexFunc(s, func(r rune) bool { return !(r >= '0' && r <= '9') && r != '.' })
		if n <= 0 {
			return "", fmt.Errorf("invalid duration %q", raw)
		}
		numStr := s[:n]
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return "", fmt.Errorf("invalid duration %q", raw)
		}
		s = s[n:]

		u := 0
		for u < len(s) {
			r, size := utf8.DecodeRuneInString(s[u:])
			if r == utf8.RuneError || !(r == 'µ' || unicode.IsLetter(r)) {
				break
			}
			u += size
		}
		if u == 0 {
			return "", fmt.Errorf("invalid duration %q", raw)
		}
		unit := s[:u]
		s = s[u:]

		switch unit {
		case "d":
			b.WriteString(strconv.FormatFloat(num*24, 'f', -1, 64) + "h")
		case "w":
			b.WriteString(strconv.FormatFloat(num*7*24, 'f', -1, 64) + "h")
		default:
			b.WriteString(numStr + unit)
		}
	}
	return b.String(), nil
}
