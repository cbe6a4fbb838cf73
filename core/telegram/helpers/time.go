package helpers

import "time"

const dateTimeLayout = "02.01.2006 15:04"

// FormatDateTime renders t in loc as dd.mm.yyyy hh:mm; zero renders as "-".
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateTimeLayout)
}
