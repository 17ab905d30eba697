package matches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/usv-planning/matchboard/internal/store"
)

// Repository runs the pure transforms against a store. It owns no data: every
// call loads the document, works on that copy and saves it back.
type Repository struct {
	store store.Store
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time

	// serialises load-modify-save within this process
	mu       sync.Mutex
	onChange []func()
}

func NewRepository(s store.Store, loc *time.Location, log *zap.Logger) *Repository {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{store: s, loc: loc, log: log, now: time.Now}
}

// Location is the zone fixtures are read in.
func (r *Repository) Location() *time.Location { return r.loc }

// Now is the current time in the board's location.
func (r *Repository) Now() time.Time { return r.now().In(r.loc) }

// OnChange registers fn to run after every save made through the repository.
func (r *Repository) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

// -------- Helpers --------

// Decode reads the stored document. Rows that do not decode are skipped and
// reported in the joined error.
func Decode(data []byte) ([]Record, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	recs, _ := doc.records()
	return recs, doc.skipped
}

// Encode writes the collection as a JSON array, never null.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// load never fails: an unreadable store yields an empty collection.
func (r *Repository) load(ctx context.Context) document {
	snap, err := r.store.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Info("no stored matches yet")
		} else {
			r.log.Warn("load matches failed, using empty collection", zap.Error(err))
		}
		return document{}
	}
	doc, err := parseDocument(snap.Data)
	if err != nil {
		r.log.Warn("stored matches unreadable, using empty collection", zap.Error(err), zap.String("version", snap.Version))
		return document{}
	}
	if doc.skipped != nil {
		r.log.Warn("malformed match rows kept as is", zap.Error(doc.skipped), zap.String("version", snap.Version))
	}
	return doc
}

func (r *Repository) records(ctx context.Context) []Record {
	recs, _ := r.load(ctx).records()
	return recs
}

// save returns store.ErrPartialSave (wrapped) when only the local copy was
// written; listeners still run in that case.
func (r *Repository) save(ctx context.Context, doc document) error {
	data, err := doc.encode()
	if err != nil {
		return fmt.Errorf("encode matches: %w", err)
	}
	_, err = r.store.Save(ctx, data)
	if err != nil && !errors.Is(err, store.ErrPartialSave) {
		return fmt.Errorf("save matches: %w", err)
	}
	for _, fn := range r.onChange {
		fn()
	}
	return err
}

// -------- Reads --------

func (r *Repository) List(ctx context.Context) []Record {
	return r.records(ctx)
}

func (r *Repository) Get(ctx context.Context, id ID) (Record, error) {
	rec, ok := Find(r.records(ctx), id)
	if !ok {
		return Record{}, &NotFoundError{ID: id}
	}
	return rec, nil
}

// Week builds the view for the week containing ref (read in the board location).
func (r *Repository) Week(ctx context.Context, ref time.Time) WeeklyView {
	return BuildWeekView(r.records(ctx), ref.In(r.loc))
}

// Valid lists every displayable match, for the admin list.
func (r *Repository) Valid(ctx context.Context) []Entry {
	return ListValid(r.records(ctx), r.loc)
}

// Raw returns the stored collection with every row as it was stored.
func (r *Repository) Raw(ctx context.Context) ([]byte, error) {
	return r.load(ctx).encode()
}

// -------- CRUD --------

func (r *Repository) Create(ctx context.Context, d Draft) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)
	recs, _ := CreateMatch(doc.ids(), d)
	rec := recs[len(recs)-1]
	if err := doc.add(rec); err != nil {
		return Record{}, err
	}
	return rec, r.save(ctx, doc)
}

func (r *Repository) Update(ctx context.Context, id ID, d Draft) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)
	recs, at := doc.records()
	out, err := UpdateMatch(recs, id, d)
	if err != nil {
		return Record{}, err
	}
	i := indexOf(recs, id)
	if err := doc.replace(at[i], out[i]); err != nil {
		return Record{}, err
	}
	return out[i], r.save(ctx, doc)
}

func (r *Repository) Delete(ctx context.Context, id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)
	recs, at := doc.records()
	if _, err := DeleteMatch(recs, id); err != nil {
		return err
	}
	doc.remove(at[indexOf(recs, id)])
	return r.save(ctx, doc)
}

// CreateMany appends all drafts with consecutive ids and saves once.
func (r *Repository) CreateMany(ctx context.Context, drafts []Draft) ([]ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)
	recs := doc.ids()
	ids := make([]ID, 0, len(drafts))
	for _, d := range drafts {
		var id ID
		recs, id = CreateMatch(recs, d)
		if err := doc.add(recs[len(recs)-1]); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	return ids, r.save(ctx, doc)
}

// ReplaceRaw overwrites the whole collection with a JSON array. Rows are
// stored as sent, including ones that do not decode.
func (r *Repository) ReplaceRaw(ctx context.Context, data []byte) error {
	doc, err := parseDocument(data)
	if err != nil {
		return err
	}
	if doc.skipped != nil {
		r.log.Warn("replace: malformed rows kept as is", zap.Error(doc.skipped))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, doc)
}
