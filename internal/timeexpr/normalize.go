// Package timeexpr recognizes typed and spoken clock times and reduces them to
// the canonical "H:MM AM" form that is used as the booking key.
package timeexpr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnrecognizedTime is matched by every NormalizationError.
var ErrUnrecognizedTime = errors.New("unrecognized time")

// NormalizationError reports time text that no rule accepted, or that a rule
// accepted with an hour or minute out of range.
type NormalizationError struct {
	Input  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("timeexpr: cannot normalize %q", e.Input)
	}
	return fmt.Sprintf("timeexpr: cannot normalize %q: %s", e.Input, e.Reason)
}

// Is lets callers use errors.Is(err, ErrUnrecognizedTime).
func (e *NormalizationError) Is(target error) bool {
	return target == ErrUnrecognizedTime
}

const meridiemToken = `([ap])\.?m\.?`

var hourWords = map[string]int{
	"one":    1,
	"two":    2,
	"three":  3,
	"four":   4,
	"five":   5,
	"six":    6,
	"seven":  7,
	"eight":  8,
	"nine":   9,
	"ten":    10,
	"eleven": 11,
	"twelve": 12,
}

// Longest words first so alternations never stop at a shorter prefix.
const hourWordAlternation = `twelve|eleven|three|seven|eight|four|five|nine|one|two|six|ten`

type clock struct {
	hour   int
	minute int
	pm     bool
}

func (c clock) String() string {
	suffix := "AM"
	if c.pm {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", c.hour, c.minute, suffix)
}

type rule struct {
	name    string
	pattern *regexp.Regexp
	apply   func(match []string) (clock, error)
}

// rules is the closed, ordered grammar. The first rule whose pattern matches
// decides the result, even when its values turn out to be out of range.
var rules = []rule{
	{
		name:    "24-hour",
		pattern: regexp.MustCompile(`^(\d{1,2}):(\d{2})$`),
		apply: func(m []string) (clock, error) {
			return from24Hour(m[1], m[2])
		},
	},
	{
		name:    "12-hour",
		pattern: regexp.MustCompile(`^(\d{1,2}):(\d{2}) ?` + meridiemToken + `$`),
		apply: func(m []string) (clock, error) {
			return from12Hour(m[1], m[2], m[3] == "p")
		},
	},
	{
		name:    "bare-meridiem",
		pattern: regexp.MustCompile(`^(\d{1,2}) ?` + meridiemToken + `$`),
		apply: func(m []string) (clock, error) {
			return from12Hour(m[1], "00", m[2] == "p")
		},
	},
	{
		name: "spoken",
		pattern: regexp.MustCompile(`^(` + hourWordAlternation + `)(?: o['’]?clock)? (?:(?:in the|at) )?` +
			`(morning|afternoon|evening|night|a\.?m\.?|p\.?m\.?)$`),
		apply: func(m []string) (clock, error) {
			return clock{hour: hourWords[m[1]], minute: 0, pm: periodIsPM(m[2])}, nil
		},
	},
	{
		name:    "bare-hour",
		pattern: regexp.MustCompile(`^(\d{1,2})$`),
		apply: func(m []string) (clock, error) {
			return from24Hour(m[1], "00")
		},
	},
}

// Normalize converts a time expression such as "9pm", "9:00 p.m.", "14:00" or
// "nine in the evening" into canonical form ("9:00 PM"). The returned error is
// always a *NormalizationError.
func Normalize(raw string) (string, error) {
	text := cleanup(raw)
	if text == "" {
		return "", &NormalizationError{Input: raw, Reason: "empty"}
	}
	for _, r := range rules {
		match := r.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		c, err := r.apply(match)
		if err != nil {
			return "", &NormalizationError{Input: raw, Reason: fmt.Sprintf("%s: %v", r.name, err)}
		}
		return c.String(), nil
	}
	return "", &NormalizationError{Input: raw}
}

// IsCanonical reports whether s is already in canonical form.
func IsCanonical(s string) bool {
	normalized, err := Normalize(s)
	return err == nil && normalized == s
}

func cleanup(raw string) string {
	text := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	return strings.Trim(text, " ,;!?")
}

func from24Hour(hourText, minuteText string) (clock, error) {
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return clock{}, err
	}
	minute, err := parseMinute(minuteText)
	if err != nil {
		return clock{}, err
	}
	if hour < 0 || hour > 23 {
		return clock{}, fmt.Errorf("hour %d out of range", hour)
	}
	switch {
	case hour == 0:
		return clock{hour: 12, minute: minute, pm: false}, nil
	case hour < 12:
		return clock{hour: hour, minute: minute, pm: false}, nil
	case hour == 12:
		return clock{hour: 12, minute: minute, pm: true}, nil
	default:
		return clock{hour: hour - 12, minute: minute, pm: true}, nil
	}
}

func from12Hour(hourText, minuteText string, pm bool) (clock, error) {
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return clock{}, err
	}
	if hour < 1 || hour > 12 {
		return clock{}, fmt.Errorf("hour %d out of range", hour)
	}
	minute, err := parseMinute(minuteText)
	if err != nil {
		return clock{}, err
	}
	return clock{hour: hour, minute: minute, pm: pm}, nil
}

func parseMinute(text string) (int, error) {
	minute, err := strconv.Atoi(text)
	if err != nil {
		return 0, err
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute %d out of range", minute)
	}
	return minute, nil
}

func periodIsPM(period string) bool {
	switch period {
	case "morning":
		return false
	case "afternoon", "evening", "night":
		return true
	}
	return strings.HasPrefix(period, "p")
}
