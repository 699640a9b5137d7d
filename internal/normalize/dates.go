// Package normalize converts raw sheet tables into typed defect records.
package normalize

import (
	"regexp"
	"strconv"
	"time"
)

// bracketedDate matches the source-native date encoding emitted by the
// query interface, e.g. "Date(2024,11,3,14,0,0)". The second component
// is a zero-based month.
var bracketedDate = regexp.MustCompile(`^Date\(`)

var digits = regexp.MustCompile(`\d+`)

// dateLayouts are the generic display formats seen in the sheets, most
// specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseCellDate parses a raw cell value into a calendar timestamp.
// Two encodings are accepted: the bracketed numeric-component form
// Date(year, zero-based month, day[, hour, minute, second]) and any
// generic parseable date string. Anything else reports ok=false; an
// unparsable date is not an error, it just sorts lowest.
func ParseCellDate(value string) (t time.Time, ok bool) {
	if value == "" {
		return time.Time{}, false
	}

	if bracketedDate.MatchString(value) {
		parts := digits.FindAllString(value, -1)
		if len(parts) < 3 {
			return time.Time{}, false
		}
		nums := make([]int, 6)
		for i := 0; i < len(parts) && i < 6; i++ {
			n, err := strconv.Atoi(parts[i])
			if err != nil {
				return time.Time{}, false
			}
			nums[i] = n
		}
		return time.Date(nums[0], time.Month(nums[1]+1), nums[2], nums[3], nums[4], nums[5], 0, time.Local), true
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
