package matches

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/usv-planning/matchboard/internal/store"
)

const seed = `[
  {"id": 1, "datetime": "2024-06-10T18:00", "homeTeam": "USV U17", "awayTeam": "Arras FA", "venue": "Stade municipal", "status": "a_venir", "competition": "championnat"},
  {"id": "2", "datetime": "2024-06-15T15:00", "homeTeam": "RC Lens B", "awayTeam": "USV Seniors", "status": "termine", "scoreHome": 1, "scoreAway": 2},
  {"id": 3, "datetime": "2024-06-22T15:00", "homeTeam": "USV Seniors", "awayTeam": "Béthune"},
  "not a match"
]`

// failing always errors on Load and Save.
type failing struct{ err error }

func (f failing) Load(context.Context) (store.Snapshot, error)  { return store.Snapshot{}, f.err }
func (f failing) Save(context.Context, []byte) (string, error)   { return "", f.err }
func (f failing) Version(context.Context) (string, error)        { return "", f.err }

func newTestRepo(t *testing.T, data string) (*Repository, *store.Memory) {
	t.Helper()
	var mem *store.Memory
	if data == "" {
		mem = store.NewMemory(nil)
	} else {
		mem = store.NewMemory([]byte(data))
	}
	return NewRepository(mem, paris(t), nil), mem
}

func TestRepository_LoadSkipsMalformedRows(t *testing.T) {
	repo, _ := newTestRepo(t, seed)
	list := repo.List(context.Background())
	assertEq(t, len(list), 3)
	assertEq(t, list[1].ID, ID("2"))
}

func TestRepository_LoadFailureIsEmpty(t *testing.T) {
	repo := NewRepository(failing{err: errors.New("boom")}, time.UTC, nil)
	assertEq(t, len(repo.List(context.Background())), 0)

	repo, _ = newTestRepo(t, "")
	assertEq(t, len(repo.List(context.Background())), 0)
	raw, err := repo.Raw(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, string(raw), "[]")
}

func TestRepository_Week(t *testing.T) {
	repo, _ := newTestRepo(t, seed)
	v := repo.Week(context.Background(), time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	assertEq(t, v.Total, 2)
	sat, _ := v.Group("Samedi")
	assertEq(t, len(sat.Matches), 1)
	assertEq(t, sat.Matches[0].ResultClass, ResultVictory)
}

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo, mem := newTestRepo(t, seed)
	changes := 0
	repo.OnChange(func() { changes++ })

	rec, err := repo.Create(ctx, Draft{Datetime: "2024-06-12T20:00", HomeTeam: "USV U19", AwayTeam: "Liévin"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertEq(t, rec.ID, ID("4"))
	assertEq(t, changes, 1)

	got, err := repo.Get(ctx, "4")
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, got.HomeTeam, "USV U19")

	upd, err := repo.Update(ctx, "2", Draft{Datetime: "2024-06-15T15:00", HomeTeam: "RC Lens B", AwayTeam: "USV Seniors", Status: StatusFinished, ScoreHome: intp(0), ScoreAway: intp(0)})
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, upd.Score(), "0 - 0")

	if err := repo.Delete(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	assertEq(t, changes, 3)

	_, err = repo.Get(ctx, "1")
	assertEq(t, errors.Is(err, ErrNotFound), true)
	assertEq(t, errors.Is(repo.Delete(ctx, "1"), ErrNotFound), true)
	assertEq(t, changes, 3)

	// the rewritten document still carries the malformed row
	snap, err := mem.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := Decode(snap.Data)
	if err == nil {
		t.Fatal("expected the malformed row to be reported")
	}
	assertEq(t, len(recs), 3)
	assertEq(t, bytes.Contains(snap.Data, []byte(`"not a match"`)), true)
}

func TestRepository_DeleteKeepsMalformedSibling(t *testing.T) {
	ctx := context.Background()
	repo, mem := newTestRepo(t, `[
  {"id": 1, "datetime": "2024-06-10T18:00", "homeTeam": "USV U17", "awayTeam": "Arras FA", "scoreHome": "3", "scoreAway": "1"},
  {"id": 2, "datetime": "2024-06-11T18:00", "homeTeam": "USV U19", "awayTeam": "Lens", "notes": "keep me"},
  {"id": 3, "datetime": "2024-06-12T18:00", "homeTeam": "USV Seniors", "awayTeam": "Béthune"}
]`)

	// row 1 does not decode: it is neither listed nor found
	assertEq(t, len(repo.List(ctx)), 2)
	_, err := repo.Get(ctx, "1")
	assertEq(t, errors.Is(err, ErrNotFound), true)

	if err := repo.Delete(ctx, "3"); err != nil {
		t.Fatal(err)
	}
	snap, err := mem.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(snap.Data, &rows); err != nil {
		t.Fatal(err)
	}
	assertEq(t, len(rows), 2)
	assertEq(t, rows[0]["scoreHome"], any("3"))
	assertEq(t, rows[0]["scoreAway"], any("1"))
	assertEq(t, rows[1]["notes"], any("keep me"))
}

func TestRepository_UpdateKeepsUnknownFields(t *testing.T) {
	ctx := context.Background()
	repo, mem := newTestRepo(t, `[{"id": 2, "datetime": "2024-06-11T18:00", "homeTeam": "USV U19", "awayTeam": "Lens", "notes": "keep me"}]`)

	rec, err := repo.Update(ctx, "2", Draft{Datetime: "2024-06-11T20:00", HomeTeam: "USV U19", AwayTeam: "Lens", Venue: "Stade"})
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, rec.Venue, "Stade")

	snap, err := mem.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(snap.Data, &rows); err != nil {
		t.Fatal(err)
	}
	assertEq(t, len(rows), 1)
	assertEq(t, rows[0]["notes"], any("keep me"))
	assertEq(t, rows[0]["datetime"], any("2024-06-11T20:00"))
	assertEq(t, rows[0]["venue"], any("Stade"))
	assertEq(t, rows[0]["id"], any(float64(2)))
}

func TestRepository_NonCanonicalStringIDs(t *testing.T) {
	ctx := context.Background()
	repo, mem := newTestRepo(t, `[{"id": "007", "datetime": "2024-06-10T18:00", "homeTeam": "USV U17", "awayTeam": "Arras FA"}]`)

	rec, err := repo.Create(ctx, Draft{Datetime: "2024-06-11T18:00", HomeTeam: "A", AwayTeam: "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertEq(t, rec.ID, ID("8"))

	raw, err := repo.Raw(ctx)
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	assertEq(t, bytes.Contains(raw, []byte(`"id":"007"`)), true)

	// "007" only matches itself
	_, err = repo.Get(ctx, "7")
	assertEq(t, errors.Is(err, ErrNotFound), true)
	if _, err := repo.Update(ctx, "007", Draft{Datetime: "2024-06-10T18:00", HomeTeam: "USV U17", AwayTeam: "Lens"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, err := mem.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, bytes.Contains(snap.Data, []byte(`"id":"007"`)), true)
	assertEq(t, bytes.Contains(snap.Data, []byte(`"awayTeam":"Lens"`)), true)
}

func TestRepository_NextIDCountsMalformedRows(t *testing.T) {
	repo, _ := newTestRepo(t, `[{"id": 5, "homeTeam": "USV", "scoreHome": "3"}]`)
	rec, err := repo.Create(context.Background(), Draft{Datetime: "2024-06-11T18:00", HomeTeam: "A", AwayTeam: "B"})
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, rec.ID, ID("6"))
}

func TestRepository_CreateManyConsecutiveIDs(t *testing.T) {
	repo, _ := newTestRepo(t, seed)
	ids, err := repo.CreateMany(context.Background(), []Draft{
		{Datetime: "2024-06-11T18:00", HomeTeam: "A", AwayTeam: "B"},
		{Datetime: "2024-06-11T20:00", HomeTeam: "C", AwayTeam: "D"},
	})
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, fmt.Sprint(ids), "[4 5]")
	assertEq(t, len(repo.List(context.Background())), 5)
}

func TestRepository_PartialSaveStillNotifies(t *testing.T) {
	partial := fmt.Errorf("%w: %v", store.ErrPartialSave, errors.New("offline"))
	repo := NewRepository(failing{err: partial}, time.UTC, nil)
	called := false
	repo.OnChange(func() { called = true })

	_, err := repo.Create(context.Background(), Draft{Datetime: "2024-06-11T18:00", HomeTeam: "A", AwayTeam: "B"})
	assertEq(t, errors.Is(err, store.ErrPartialSave), true)
	assertEq(t, called, true)
}

func TestRepository_SaveFailure(t *testing.T) {
	repo := NewRepository(failing{err: errors.New("down")}, time.UTC, nil)
	called := false
	repo.OnChange(func() { called = true })
	_, err := repo.Create(context.Background(), Draft{Datetime: "2024-06-11T18:00", HomeTeam: "A", AwayTeam: "B"})
	if err == nil {
		t.Fatal("expected error")
	}
	assertEq(t, called, false)
}

func TestRepository_ReplaceRaw(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t, seed)
	if err := repo.ReplaceRaw(ctx, []byte(`[{"id":9,"datetime":"2024-06-10T10:00","homeTeam":"USV","awayTeam":"X"}]`)); err != nil {
		t.Fatal(err)
	}
	list := repo.List(ctx)
	assertEq(t, len(list), 1)
	assertEq(t, list[0].ID, ID("9"))

	body := `[{"id":1,"scoreHome":"x"},{"id":2,"datetime":"2024-06-10T10:00","homeTeam":"USV","awayTeam":"X","notes":"n"}]`
	if err := repo.ReplaceRaw(ctx, []byte(body)); err != nil {
		t.Fatal(err)
	}
	raw, err := repo.Raw(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, string(raw), body)
	assertEq(t, len(repo.List(ctx)), 1)

	if err := repo.ReplaceRaw(ctx, []byte(`{"not":"an array"}`)); err == nil {
		t.Fatal("expected error for non-array body")
	}
	assertEq(t, len(repo.List(ctx)), 1)
}
