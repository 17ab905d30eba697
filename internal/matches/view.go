package matches

import (
	"slices"
	"strings"
	"time"
)

// ResultClass tags a match card from the club's point of view.
type ResultClass string

const (
	ResultNone    ResultClass = ""
	ResultVictory ResultClass = "victory"
	ResultDefeat  ResultClass = "defeat"
	ResultDraw    ResultClass = "draw"
	ResultOngoing ResultClass = "ongoing"
)

// A home team containing one of these belongs to the club.
var clubMarkers = []string{"u1", "usv", "séniors"}

// ClubAtHome reports whether the club plays the home side of a fixture.
func ClubAtHome(homeTeam string) bool {
	h := strings.ToLower(homeTeam)
	for _, m := range clubMarkers {
		if strings.Contains(h, m) {
			return true
		}
	}
	return false
}

// Result classifies r. Both scores are needed for a result; without them
// only an ongoing match gets a class.
func Result(r Record) ResultClass {
	if r.ScoreHome == nil || r.ScoreAway == nil {
		if r.Status.Ongoing() {
			return ResultOngoing
		}
		return ResultNone
	}
	club, opp := *r.ScoreAway, *r.ScoreHome
	if ClubAtHome(r.HomeTeam) {
		club, opp = *r.ScoreHome, *r.ScoreAway
	}
	switch {
	case club > opp:
		return ResultVictory
	case club < opp:
		return ResultDefeat
	default:
		return ResultDraw
	}
}

// DensityHint is the display scale for a week holding n matches.
func DensityHint(n int) float64 {
	switch {
	case n > 10:
		return 0.85
	case n > 7:
		return 0.9
	default:
		return 1.0
	}
}

// Entry is a record annotated for display.
type Entry struct {
	Record
	Start            time.Time   `json:"start"`
	StatusLabel      string      `json:"statusLabel"`
	CompetitionLabel string      `json:"competitionLabel"`
	CompetitionClass string      `json:"competitionClass"`
	Score            string      `json:"score"`
	ResultClass      ResultClass `json:"resultClass"`
}

func annotate(r Record, start time.Time) Entry {
	return Entry{
		Record:           r,
		Start:            start,
		StatusLabel:      r.Status.Label(),
		CompetitionLabel: CompetitionLabel(r.Competition),
		CompetitionClass: CompetitionClass(r.Competition),
		Score:            r.Score(),
		ResultClass:      Result(r),
	}
}

// DayGroup is one day bucket of a week.
type DayGroup struct {
	Weekday time.Weekday `json:"weekday"`
	Label   string       `json:"label"`
	Matches []Entry      `json:"matches"`
}

// WeeklyView is what the public board and the admin week list render.
type WeeklyView struct {
	WeekStart time.Time  `json:"weekStart"`
	WeekEnd   time.Time  `json:"weekEnd"`
	Days      []DayGroup `json:"days"`
	Total     int        `json:"total"`
	Scale     float64    `json:"scale"`
}

// Group returns the bucket titled label ("Samedi").
func (v WeeklyView) Group(label string) (DayGroup, bool) {
	for _, g := range v.Days {
		if g.Label == label {
			return g, true
		}
	}
	return DayGroup{}, false
}

// Entries flattens the buckets in display order.
func (v WeeklyView) Entries() []Entry {
	out := make([]Entry, 0, v.Total)
	for _, g := range v.Days {
		out = append(out, g.Matches...)
	}
	return out
}

// validEntries keeps the displayable records, annotated and sorted by start.
// The sort is stable so equal datetimes keep their input order.
func validEntries(records []Record, loc *time.Location, keep func(time.Time) bool) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.HomeTeam) == "" || strings.TrimSpace(r.AwayTeam) == "" {
			continue
		}
		start, ok := r.Start(loc)
		if !ok {
			continue
		}
		if keep != nil && !keep(start) {
			continue
		}
		out = append(out, annotate(r, start))
	}
	slices.SortStableFunc(out, func(a, b Entry) int { return a.Start.Compare(b.Start) })
	return out
}

// BuildWeekView groups the valid records of ref's week by day. Records are
// read in ref's location; malformed ones are skipped.
func BuildWeekView(records []Record, ref time.Time) WeeklyView {
	start, end := WeekOf(ref)
	entries := validEntries(records, ref.Location(), func(t time.Time) bool {
		return !t.Before(start) && !t.After(end)
	})

	days := make([]DayGroup, 0, len(weekOrder))
	index := make(map[time.Weekday]int, len(weekOrder))
	for i, wd := range weekOrder {
		days = append(days, DayGroup{Weekday: wd, Label: DayLabel(wd), Matches: []Entry{}})
		index[wd] = i
	}
	total := 0
	for _, e := range entries {
		i, ok := index[e.Start.Weekday()]
		if !ok {
			continue
		}
		days[i].Matches = append(days[i].Matches, e)
		total++
	}

	return WeeklyView{
		WeekStart: start,
		WeekEnd:   end,
		Days:      days,
		Total:     total,
		Scale:     DensityHint(len(entries)),
	}
}

// ListValid returns every displayable record, whatever the week, oldest first.
func ListValid(records []Record, loc *time.Location) []Entry {
	return validEntries(records, loc, nil)
}
