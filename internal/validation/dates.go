package validation

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the accepted invoice date shapes, tried in order.
var dateLayouts = []string{
	"2006-01-02",      // YYYY-MM-DD
	"1/2/2006",        // MM/DD/YYYY
	"2-1-2006",        // DD-MM-YYYY
	"Jan 2, 2006",     // Mon D, YYYY
	"January 2, 2006", // Month D, YYYY
}

// ParseDate parses a free-form invoice date in one of the accepted shapes.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
