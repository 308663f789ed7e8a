package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidDuration is returned by Parse for malformed input.
var ErrInvalidDuration = errors.New("invalid duration")

type unitName struct {
	d        time.Duration
	singular string
	plural   string
}

var formatUnits = []unitName{
	{Day, "day", "days"},
	{time.Hour, "h", "h"},
	{time.Minute, "m", "m"},
	{time.Second, "s", "s"},
	{time.Millisecond, "ms", "ms"},
	{time.Microsecond, "us", "us"},
	{time.Nanosecond, "ns", "ns"},
}

// Format renders d as space separated components, largest first, e.g.
// "1day 2h 5m" or "7days". A zero duration renders as "0s".
func Format(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	first := true
	for _, u := range formatUnits {
		n := d / u.d
		if n == 0 {
			continue
		}
		d -= n * u.d
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(strconv.FormatInt(int64(n), 10))
		if n == 1 {
			b.WriteString(u.singular)
		} else {
			b.WriteString(u.plural)
		}
	}
	return b.String()
}

var parseUnits = map[string]time.Duration{
	"ns": time.Nanosecond, "nsec": time.Nanosecond,
	"us": time.Microsecond, "usec": time.Microsecond, "µs": time.Microsecond,
	"ms": time.Millisecond, "msec": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": Day, "day": Day, "days": Day,
	"w": 7 * Day, "week": 7 * Day, "weeks": 7 * Day,
}

// Parse reads a duration written as a sequence of <number><unit> pairs,
// optionally separated by spaces: "1day", "7days", "2h 30m", "1h30m", "90s".
// Units from nanoseconds up to weeks are accepted.
func Parse(s string) (time.Duration, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	var total time.Duration
	rest := in
	for rest != "" {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			break
		}

		i := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) })
		if i == 0 {
			return 0, fmt.Errorf("%w: expected number in %q", ErrInvalidDuration, in)
		}
		if i < 0 {
			return 0, fmt.Errorf("%w: missing unit in %q", ErrInvalidDuration, in)
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, in, err)
		}
		rest = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)

		j := strings.IndexFunc(rest, func(r rune) bool { return unicode.IsDigit(r) || unicode.IsSpace(r) })
		if j < 0 {
			j = len(rest)
		}
		unit, ok := parseUnits[rest[:j]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidDuration, rest[:j], in)
		}
		rest = rest[j:]

		if n > int64((1<<63-1)/unit) {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, in)
		}
		total += time.Duration(n) * unit
		if total < 0 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, in)
		}
	}
	return total, nil
}
