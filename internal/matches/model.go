package matches

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID identifies a match. Stored data mixes numeric and string ids, so the
// value is kept in its string form and compared that way.
type ID string

func (id ID) String() string { return string(id) }

// Int returns the numeric value of the id, or 0 when it is not an integer.
func (id ID) Int() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(string(id)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// numeric reports whether the id is an integer in canonical decimal form,
// so "7" is numeric while "007" and "+7" stay strings.
func (id ID) numeric() bool {
	s := strings.TrimSpace(string(id))
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == s
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id == "":
		return []byte("null"), nil
	case id.numeric():
		return []byte(strings.TrimSpace(string(id))), nil
	default:
		return json.Marshal(string(id))
	}
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("match id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("match id: %w", err)
	}
	if f == float64(int64(f)) {
		*id = ID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Status of a fixture as stored by the admin form.
type Status string

const (
	StatusUpcoming  Status = "a_venir"
	StatusOngoing   Status = "en_cours"
	StatusFinished  Status = "termine"
	StatusPostponed Status = "reporte"

	// older entries were saved with this spelling
	statusOngoingAlias Status = "encours"
)

var statusLabels = map[Status]string{
	StatusUpcoming:  "À venir",
	StatusOngoing:   "En cours",
	StatusFinished:  "Terminé",
	StatusPostponed: "Reporté",
}

// Canonical folds aliases and fills the default for an empty status.
// Unknown values are returned unchanged.
func (s Status) Canonical() Status {
	v := Status(strings.TrimSpace(string(s)))
	switch v {
	case "":
		return StatusUpcoming
	case statusOngoingAlias:
		return StatusOngoing
	}
	return v
}

// Label is the display text; unknown statuses are shown verbatim.
func (s Status) Label() string {
	c := s.Canonical()
	if l, ok := statusLabels[c]; ok {
		return l
	}
	return string(c)
}

func (s Status) Ongoing() bool { return s.Canonical() == StatusOngoing }

var competitionLabels = map[string]string{
	"championnat":               "championnat",
	"coupe d'artois":            "Coupe d'Artois",
	"coupe de france":           "Coupe de France",
	"coupe des hauts de france": "Coupe HDF",
	"coupe gambardella":         "Coupe Gambardella",
	"amical":                    "Amical",
}

// CompetitionLabel maps the known competitions to their display label.
func CompetitionLabel(c string) string {
	if l, ok := competitionLabels[c]; ok {
		return l
	}
	return c
}

// CompetitionClass is the css-friendly badge class ("competition-coupedefrance").
func CompetitionClass(c string) string {
	if c == "" {
		return ""
	}
	b := strings.Builder{}
	for _, r := range c {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return "competition-" + b.String()
}

// Record is one fixture as persisted in the shared JSON document.
type Record struct {
	ID          ID     `json:"id"`
	Datetime    string `json:"datetime"`
	HomeTeam    string `json:"homeTeam"`
	AwayTeam    string `json:"awayTeam"`
	Venue       string `json:"venue"`
	Status      Status `json:"status"`
	Competition string `json:"competition"`
	ScoreHome   *int   `json:"scoreHome"`
	ScoreAway   *int   `json:"scoreAway"`
}

// Draft holds the editable fields of a Record.
type Draft struct {
	Datetime    string `json:"datetime"`
	HomeTeam    string `json:"homeTeam"`
	AwayTeam    string `json:"awayTeam"`
	Venue       string `json:"venue"`
	Status      Status `json:"status"`
	Competition string `json:"competition"`
	ScoreHome   *int   `json:"scoreHome"`
	ScoreAway   *int   `json:"scoreAway"`
}

// Validate checks the fields the admin form requires before a create or update.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.HomeTeam) == "" {
		return &ValidationError{Field: "homeTeam", Msg: "required"}
	}
	if strings.TrimSpace(d.AwayTeam) == "" {
		return &ValidationError{Field: "awayTeam", Msg: "required"}
	}
	if strings.TrimSpace(d.Datetime) == "" {
		return &ValidationError{Field: "datetime", Msg: "required"}
	}
	return nil
}

func (d Draft) record(id ID) Record {
	status := d.Status
	if strings.TrimSpace(string(status)) == "" {
		status = StatusUpcoming
	}
	return Record{
		ID:          id,
		Datetime:    d.Datetime,
		HomeTeam:    strings.TrimSpace(d.HomeTeam),
		AwayTeam:    strings.TrimSpace(d.AwayTeam),
		Venue:       d.Venue,
		Status:      status,
		Competition: d.Competition,
		ScoreHome:   copyInt(d.ScoreHome),
		ScoreAway:   copyInt(d.ScoreAway),
	}
}

// DraftOf returns the editable part of r.
func DraftOf(r Record) Draft {
	return Draft{
		Datetime:    r.Datetime,
		HomeTeam:    r.HomeTeam,
		AwayTeam:    r.AwayTeam,
		Venue:       r.Venue,
		Status:      r.Status,
		Competition: r.Competition,
		ScoreHome:   copyInt(r.ScoreHome),
		ScoreAway:   copyInt(r.ScoreAway),
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var datetimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDatetime parses the stored datetime. Values carrying an offset keep it
// (converted to loc), everything else is read as wall time in loc.
func ParseDatetime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Start parses the record datetime in loc.
func (r Record) Start(loc *time.Location) (time.Time, bool) {
	return ParseDatetime(r.Datetime, loc)
}

// Valid reports whether r can be shown in a view.
func (r Record) Valid(loc *time.Location) bool {
	if strings.TrimSpace(r.HomeTeam) == "" || strings.TrimSpace(r.AwayTeam) == "" {
		return false
	}
	_, ok := r.Start(loc)
	return ok
}

// Score renders "3 - 1" when both scores are known.
func (r Record) Score() string {
	if r.ScoreHome == nil || r.ScoreAway == nil {
		return ""
	}
	return fmt.Sprintf("%d - %d", *r.ScoreHome, *r.ScoreAway)
}
