package matches

import (
	"strings"
	"testing"
)

func TestNormHeaders_FrenchAliases(t *testing.T) {
	hdr := []string{"Date", "Heure", "Domicile", "Extérieur", "Lieu", "Statut", "Compétition", "Résultat", "Buts domicile", "Buts extérieur"}
	m := normHeaders(hdr)
	assertEq(t, m[0], "date")
	assertEq(t, m[1], "time")
	assertEq(t, m[2], "home")
	assertEq(t, m[3], "away") // folds é -> e
	assertEq(t, m[4], "venue")
	assertEq(t, m[5], "status")
	assertEq(t, m[6], "competition")
	assertEq(t, m[7], "result")
	assertEq(t, m[8], "scorehome")
	assertEq(t, m[9], "scoreaway")
}

func TestNormHeaders_ExportHeaderRoundTrips(t *testing.T) {
	m := normHeaders(csvHeader)
	assertEq(t, m[1], "datetime")
	assertEq(t, m[2], "home")
	assertEq(t, m[3], "away")
	assertEq(t, m[7], "scorehome")
	assertEq(t, m[8], "scoreaway")
}

func TestRowToDraft_DateAndHour(t *testing.T) {
	h := normHeaders([]string{"Date", "Heure", "Recevant", "Visiteur", "Stade"})
	d, err := rowToDraft(h, []string{"10/06/2024", "18h30", "USV Seniors", "FC Test", "Stade Bollaert"})
	if err != nil {
		t.Fatalf("rowToDraft: %v", err)
	}
	assertEq(t, d.Datetime, "2024-06-10T18:30")
	assertEq(t, d.HomeTeam, "USV Seniors")
	assertEq(t, d.AwayTeam, "FC Test")
	assertEq(t, d.Venue, "Stade Bollaert")
}

func TestRowToDraft_ResultWhitespace(t *testing.T) {
	h := normHeaders([]string{"Domicile", "Extérieur", "Date", "Résultat"})
	d, err := rowToDraft(h, []string{"USV", "XYZ", "2024-06-10", " 4 - 2 "})
	if err != nil {
		t.Fatalf("rowToDraft: %v", err)
	}
	if d.ScoreHome == nil || d.ScoreAway == nil || *d.ScoreHome != 4 || *d.ScoreAway != 2 {
		t.Fatalf("bad parse: %+v", d)
	}
	assertEq(t, d.Status, StatusFinished)
	assertEq(t, d.Datetime, "2024-06-10T00:00")
}

func TestRowToDraft_StatusWords(t *testing.T) {
	h := normHeaders([]string{"Domicile", "Extérieur", "Date", "Statut"})
	for in, want := range map[string]Status{
		"À venir":  StatusUpcoming,
		"en cours": StatusOngoing,
		"Terminé":  StatusFinished,
		"reporté":  StatusPostponed,
		"annule":   Status("annule"),
	} {
		d, err := rowToDraft(h, []string{"A", "B", "2024-06-10", in})
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		assertEq(t, d.Status, want)
	}
}

func TestRowToDraft_MissingTeam(t *testing.T) {
	h := normHeaders([]string{"Domicile", "Extérieur", "Date"})
	_, err := rowToDraft(h, []string{"", "B", "2024-06-10"})
	if err == nil || !strings.Contains(err.Error(), "homeTeam") {
		t.Fatalf("expected homeTeam validation error, got %v", err)
	}
}

func TestRowToDraft_BadDate(t *testing.T) {
	h := normHeaders([]string{"Domicile", "Extérieur", "Date"})
	if _, err := rowToDraft(h, []string{"A", "B", "demain"}); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestStatus_CanonicalAndLabel(t *testing.T) {
	assertEq(t, Status("").Canonical(), StatusUpcoming)
	assertEq(t, Status("encours").Canonical(), StatusOngoing)
	assertEq(t, Status("encours").Label(), "En cours")
	assertEq(t, Status("termine").Label(), "Terminé")
	assertEq(t, Status("forfait").Label(), "forfait")
	assertEq(t, Status("encours").Ongoing(), true)
}

func TestCompetitionLabelAndClass(t *testing.T) {
	assertEq(t, CompetitionLabel("coupe des hauts de france"), "Coupe HDF")
	assertEq(t, CompetitionLabel("tournoi"), "tournoi")
	assertEq(t, CompetitionClass("coupe de france"), "competition-coupedefrance")
	assertEq(t, CompetitionClass("coupe d'artois"), "competition-coupedartois")
	assertEq(t, CompetitionClass(""), "")
}

// --- small helpers ---
func assertEq[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func intp(v int) *int { return &v }
