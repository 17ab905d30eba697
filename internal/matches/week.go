package matches

import "time"

// Week days in display order, Monday first.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var dayLabels = map[time.Weekday]string{
	time.Monday:    "Lundi",
	time.Tuesday:   "Mardi",
	time.Wednesday: "Mercredi",
	time.Thursday:  "Jeudi",
	time.Friday:    "Vendredi",
	time.Saturday:  "Samedi",
	time.Sunday:    "Dimanche",
}

// DayLabel returns the French day name used to title a day bucket.
func DayLabel(d time.Weekday) string {
	if l, ok := dayLabels[d]; ok {
		return l
	}
	return "Autre jour"
}

// MondayOf returns local midnight of the Monday starting t's week.
func MondayOf(t time.Time) time.Time {
	wd := int(t.Weekday())
	back := wd - 1
	if wd == 0 {
		back = 6
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
}

// SundayOf returns the last millisecond of t's week (Sunday 23:59:59.999),
// the inclusive upper bound of the week filter.
func SundayOf(t time.Time) time.Time {
	y, m, d := MondayOf(t).Date()
	return time.Date(y, m, d+6, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// WeekOf returns both bounds of t's week.
func WeekOf(t time.Time) (start, end time.Time) {
	return MondayOf(t), SundayOf(t)
}

// InWeek reports whether x falls within ref's week, bounds included.
func InWeek(x, ref time.Time) bool {
	start, end := WeekOf(ref)
	return !x.Before(start) && !x.After(end)
}
