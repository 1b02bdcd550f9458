package rfp

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	durationRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?|an?|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s*(?:-\s*)?(business\s+days?|working\s+days?|days?|weeks?|months?)\b`)
	numberRe   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	wordNumbers = map[string]float64{
		"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
		"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	}

	immediateWords = []string{"immediate", "immediately", "same day", "asap"}
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30

	// MaxDeliveryDays is the longest timeline accepted as stated.
	MaxDeliveryDays = 3650
)

// ParseAmount reads a monetary amount, dropping currency symbols and
// thousands separators. It returns nil when no number is present.
func ParseAmount(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return &val
	case int:
		f := float64(val)
		return &f
	case string:
		cleaned := strings.ReplaceAll(val, ",", "")
		match := numberRe.FindString(cleaned)
		if match == "" {
			return nil
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ParseDays converts a delivery timeline to whole days.
// Weeks count 7 days, months 30 and "immediate" is 1.
// Non-positive timelines and ones above MaxDeliveryDays count as not stated.
func ParseDays(v any) *int {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return wholeDays(val)
	case int:
		return wholeDays(float64(val))
	case string:
		return parseDaysText(val)
	default:
		return nil
	}
}

func parseDaysText(text string) *int {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}

	if match := durationRe.FindStringSubmatch(lower); len(match) == 3 {
		qty, ok := wordNumbers[match[1]]
		if !ok {
			parsed, err := strconv.ParseFloat(match[1], 64)
			if err != nil {
				return nil
			}
			qty = parsed
		}

		unit := match[2]
		switch {
		case strings.HasPrefix(unit, "week"):
			qty *= daysPerWeek
		case strings.HasPrefix(unit, "month"):
			qty *= daysPerMonth
		}

		return wholeDays(qty)
	}

	for _, word := range immediateWords {
		if strings.Contains(lower, word) {
			days := 1
			return &days
		}
	}

	if match := numberRe.FindString(lower); match != "" {
		if parsed, err := strconv.ParseFloat(match, 64); err == nil {
			return wholeDays(parsed)
		}
	}

	return nil
}

func wholeDays(f float64) *int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	rounded := math.Round(f)
	if rounded < 1 || rounded > MaxDeliveryDays {
		return nil
	}
	days := int(rounded)
	return &days
}
