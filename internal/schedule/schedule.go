// Package schedule derives a comparable ordering key from the free-text
// "day/hour" field attached to each question.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

// Key orders questions by their intended day/hour slot.
// Smaller keys come first.
type Key int

// Unscheduled is assigned to empty or unrecognized schedule text.
// It sorts after every recognized key.
const Unscheduled Key = 9999

var dayHourPattern = regexp.MustCompile(`(?i)^day\s+(\d+)\s+hour\s+(\d+)$`)

// Weekday names as they appear in the legacy rows, Monday first.
var weekdays = map[string]int{
	"maandag":   0,
	"dinsdag":   1,
	"woensdag":  2,
	"donderdag": 3,
	"vrijdag":   4,
	"zaterdag":  5,
	"zondag":    6,
}

// Parse converts raw schedule text into a Key. Two formats are recognized:
//
//	"day <N> hour <M>"  -> N*100 + M
//	"<weekday> <Ne>"    -> weekday index * 100 + N  (legacy rows)
//
// Anything else maps to Unscheduled. The two formats share the day*100+hour
// encoding so mixed pools still sort day-first, hour-second.
func Parse(raw string) Key {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Unscheduled
	}

	if m := dayHourPattern.FindStringSubmatch(s); m != nil {
		day, err1 := strconv.Atoi(m[1])
		hour, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return Key(day*100 + hour)
		}
		return Unscheduled
	}

	return parseLegacy(s)
}

func parseLegacy(s string) Key {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) < 2 {
		return Unscheduled
	}

	day, ok := weekdays[fields[0]]
	if !ok {
		return Unscheduled
	}

	hour, ok := leadingDigits(fields[1])
	if !ok {
		return Unscheduled
	}

	return Key(day*100 + hour)
}

// leadingDigits reads the digit run at the start of an ordinal like "2e" or "3de".
func leadingDigits(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}
