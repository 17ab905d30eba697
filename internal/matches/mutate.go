package matches

import (
	"slices"
	"strconv"
	"strings"
)

// NextID is one more than the largest numeric id, or 1 for an empty
// collection. Missing and non-numeric ids count as 0.
func NextID(records []Record) ID {
	if len(records) == 0 {
		return "1"
	}
	var top int64
	for _, r := range records {
		if n := r.ID.Int(); n > top {
			top = n
		}
	}
	return ID(strconv.FormatInt(top+1, 10))
}

// indexOf compares ids in their trimmed string form, so 7 and "7" match but
// "07" does not. With duplicate ids the last one wins.
func indexOf(records []Record, id ID) int {
	want := strings.TrimSpace(string(id))
	idx := -1
	for i, r := range records {
		if strings.TrimSpace(string(r.ID)) == want {
			idx = i
		}
	}
	return idx
}

// Find returns the record with the given id.
func Find(records []Record, id ID) (Record, bool) {
	i := indexOf(records, id)
	if i < 0 {
		return Record{}, false
	}
	return records[i], true
}

// CreateMatch appends draft under a fresh id. The input slice is not modified.
func CreateMatch(records []Record, draft Draft) ([]Record, ID) {
	id := NextID(records)
	out := make([]Record, 0, len(records)+1)
	out = append(out, records...)
	out = append(out, draft.record(id))
	return out, id
}

// UpdateMatch replaces every field of the record with the given id except
// the id itself. On a missing id the original slice comes back with a
// *NotFoundError.
func UpdateMatch(records []Record, id ID, patch Draft) ([]Record, error) {
	i := indexOf(records, id)
	if i < 0 {
		return records, &NotFoundError{ID: id}
	}
	out := slices.Clone(records)
	out[i] = patch.record(records[i].ID)
	return out, nil
}

// DeleteMatch removes exactly one record with the given id.
func DeleteMatch(records []Record, id ID) ([]Record, error) {
	i := indexOf(records, id)
	if i < 0 {
		return records, &NotFoundError{ID: id}
	}
	out := make([]Record, 0, len(records)-1)
	out = append(out, records[:i]...)
	out = append(out, records[i+1:]...)
	return out, nil
}
