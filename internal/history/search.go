package history

import "strings"

// Filter returns the visits whose title, URL, dd/mm/yy date or HH:MM time
// contains query, case-insensitively. A blank query returns visits as is.
func Filter(visits []Visit, query string) []Visit {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return visits
	}

	out := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if matches(v, q) {
			out = append(out, v)
		}
	}
	return out
}

func matches(v Visit, q string) bool {
	if strings.Contains(strings.ToLower(v.Title), q) ||
		strings.Contains(strings.ToLower(v.URL), q) {
		return true
	}
	t := v.Time()
	return strings.Contains(FormatAbsolute(t), q) || strings.Contains(FormatTimeOfDay(t), q)
}

// Debouncer coalesces bursts of input. Each Touch hands out a token; a
// timer that later presents its token is the settling one only if no newer
// Touch happened in between.
type Debouncer struct {
	seq uint64
}

// Touch records an input event and returns its token.
func (d *Debouncer) Touch() uint64 {
	d.seq++
	return d.seq
}

// Settled reports whether token is the latest one.
func (d *Debouncer) Settled(token uint64) bool {
	return token == d.seq
}
