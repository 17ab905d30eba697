package matches

import (
	"encoding/json"
	"errors"
	"fmt"
)

// document is the stored collection kept row by row. Every row carries its
// original bytes, so rows that do not decode and fields Record does not know
// are written back untouched.
type document struct {
	rows []docRow
	// row decode errors from parseDocument
	skipped error
}

type docRow struct {
	raw json.RawMessage
	rec Record
	ok  bool
}

func parseDocument(data []byte) (document, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return document{}, fmt.Errorf("decode matches: %w", err)
	}
	doc := document{rows: make([]docRow, 0, len(raws))}
	var errs []error
	for i, raw := range raws {
		row := docRow{raw: raw}
		if err := json.Unmarshal(raw, &row.rec); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
			// keep whatever id can be read so new ids never reuse it
			var head struct {
				ID ID `json:"id"`
			}
			row.rec = Record{}
			if json.Unmarshal(raw, &head) == nil {
				row.rec.ID = head.ID
			}
		} else {
			row.ok = true
		}
		doc.rows = append(doc.rows, row)
	}
	doc.skipped = errors.Join(errs...)
	return doc, nil
}

// records returns the decoded rows and, for each, its position in rows.
func (d document) records() ([]Record, []int) {
	recs := make([]Record, 0, len(d.rows))
	at := make([]int, 0, len(d.rows))
	for i, row := range d.rows {
		if !row.ok {
			continue
		}
		recs = append(recs, row.rec)
		at = append(at, i)
	}
	return recs, at
}

// ids lists every row, decoded or not, by id only.
func (d document) ids() []Record {
	out := make([]Record, len(d.rows))
	for i, row := range d.rows {
		out[i] = Record{ID: row.rec.ID}
	}
	return out
}

func (d *document) add(rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", rec.ID, err)
	}
	d.rows = append(d.rows, docRow{raw: raw, rec: rec, ok: true})
	return nil
}

// replace swaps the known fields of row i for rec and keeps any others.
func (d *document) replace(i int, rec Record) error {
	raw, err := mergeRow(d.rows[i].raw, rec)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", rec.ID, err)
	}
	d.rows[i] = docRow{raw: raw, rec: rec, ok: true}
	return nil
}

func (d *document) remove(i int) {
	d.rows = append(d.rows[:i:i], d.rows[i+1:]...)
}

func (d document) encode() ([]byte, error) {
	raws := make([]json.RawMessage, len(d.rows))
	for i, row := range d.rows {
		raws[i] = row.raw
	}
	return json.Marshal(raws)
}

func mergeRow(orig json.RawMessage, rec Record) (json.RawMessage, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(orig, &fields); err != nil || fields == nil {
		return b, nil
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(b, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		fields[k] = v
	}
	return json.Marshal(fields)
}
