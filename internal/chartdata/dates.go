package chartdata

import (
	"fmt"
	"time"
)

// labelLayout renders an abbreviated English month and day, e.g. "Jul 1".
const labelLayout = "Jan 2"

// Label formats a calendar day for a chart axis.
func Label(t time.Time) string {
	return t.Format(labelLayout)
}

// Labels formats each day with Label.
func Labels(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = Label(d)
	}
	return out
}

// DaysEnding returns n consecutive calendar days, the last of which is the
// calendar day of end.
func DaysEnding(end time.Time, n int) ([]time.Time, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidArgument, n)
	}
	y, m, d := end.Date()
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		// time.Date normalizes day overflow, so month and leap-year rollover
		// come out calendar-correct.
		out[i] = time.Date(y, m, d-(n-1)+i, 0, 0, 0, 0, end.Location())
	}
	return out, nil
}

// DaysAfter returns n consecutive calendar days starting the day after
// anchor. Appended to a DaysEnding(anchor, k) window it leaves neither a gap
// nor an overlap.
func DaysAfter(anchor time.Time, n int) ([]time.Time, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidArgument, n)
	}
	y, m, d := anchor.Date()
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = time.Date(y, m, d+1+i, 0, 0, 0, 0, anchor.Location())
	}
	return out, nil
}

// GenerateDates returns n day labels. With a nil anchor the labels end on
// today (as reported by now); otherwise they start the day after *anchor.
func GenerateDates(n int, anchor *time.Time, now func() time.Time) ([]string, error) {
	var (
		days []time.Time
		err  error
	)
	if anchor == nil {
		days, err = DaysEnding(now(), n)
	} else {
		days, err = DaysAfter(*anchor, n)
	}
	if err != nil {
		return nil, err
	}
	return Labels(days), nil
}
