package jobsps

import (
	"fmt"
	"strings"
	"time"
)

// farFuture is the sentinel for unparseable posted dates; it sorts after
// every real date.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// ParsePostedDate parses a listing date string. Two layouts occur:
// "24, Feb" (year implied current) and "16, Nov, 2025". The boolean is
// false when the string does not match either layout.
func ParsePostedDate(dateStr string) (time.Time, bool) {
	parts := strings.Split(dateStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var joined string
	switch len(parts) {
	case 3:
		joined = fmt.Sprintf("%s %s %s", parts[0], parts[1], parts[2])
	case 2:
		joined = fmt.Sprintf("%s %s %d", parts[0], parts[1], time.Now().Year())
	default:
		return time.Time{}, false
	}

	t, err := time.Parse("2 Jan 2006", joined)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PostedDateOrFarFuture is the sort key for delivery ordering: postings
// with a missing or unparseable date go last.
func PostedDateOrFarFuture(dateStr string) time.Time {
	if dateStr == "" {
		return farFuture
	}
	if t, ok := ParsePostedDate(dateStr); ok {
		return t
	}
	return farFuture
}
