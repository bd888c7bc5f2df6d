package validate

import (
	"net/url"
	"strings"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func OneOf(value int, allowed []int) bool {
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}

func IntInRange(value, min, max int) bool {
	return value >= min && value <= max
}

func FloatInRange(value, min, max float64) bool {
	return value >= min && value <= max
}

// HTTPURL reports whether raw is an absolute http or https URL with a host.
func HTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LongestRun returns the length of the longest run of one repeated rune.
func LongestRun(s string) int {
	longest, run := 0, 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run > longest {
			longest = run
		}
	}
	return longest
}
