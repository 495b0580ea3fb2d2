// Package dataset defines the tabular batch that flows between pipeline
// stages: an ordered sequence of rows sharing one column set, with scalar
// cell values (string, int64, float64, bool, time.Time, or nil).
//
// Ownership transfers by value at stage boundaries: a stage that mutates a
// dataset must work on its own Clone. Cell values themselves are immutable
// scalars, so Clone copies rows but not cells.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Row maps column name to a scalar cell value. Keys not registered as
// dataset columns are ignored by every accessor.
type Row map[string]any

// Dataset is one table-shaped batch of rows.
type Dataset struct {
	cols []string
	rows []Row
}

// New returns an empty dataset with the given column set, in order.
func New(columns ...string) *Dataset {
	d := &Dataset{cols: make([]string, 0, len(columns))}
	for _, c := range columns {
		d.addColumn(c)
	}
	return d
}

// FromRows builds a dataset from pre-assembled rows. The column order is
// given explicitly because Go map iteration would not preserve one.
func FromRows(columns []string, rows []Row) *Dataset {
	d := New(columns...)
	d.rows = append(d.rows, rows...)
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Columns returns a copy of the column set in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.cols))
	copy(out, d.cols)
	return out
}

// HasColumn reports whether the column is part of the dataset's column set.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.cols {
		if c == name {
			return true
		}
	}
	return false
}

// Row returns the i-th row. The returned map is shared with the dataset;
// callers that mutate it must own the dataset.
func (d *Dataset) Row(i int) Row { return d.rows[i] }

// Rows returns the underlying row slice (shared, not copied).
func (d *Dataset) Rows() []Row { return d.rows }

// Append adds a row. Keys outside the column set stay in the map but are
// invisible to Value, Project, and friends.
func (d *Dataset) Append(r Row) { d.rows = append(d.rows, r) }

// Value returns the cell at (row i, column name); ok is false when the
// column is not part of the column set.
func (d *Dataset) Value(i int, name string) (any, bool) {
	if !d.HasColumn(name) {
		return nil, false
	}
	return d.rows[i][name], true
}

// SetColumn assigns the same value to the named column in every row,
// registering the column when absent. This is how bookkeeping columns such
// as updated_at are stamped.
func (d *Dataset) SetColumn(name string, v any) {
	d.addColumn(name)
	for _, r := range d.rows {
		r[name] = v
	}
}

// Set assigns the cell at (row i, column name), registering the column
// when absent.
func (d *Dataset) Set(i int, name string, v any) {
	d.addColumn(name)
	d.rows[i][name] = v
}

// RenameColumn renames a column in the column set and in every row. It is a
// no-op when from is absent or to already exists.
func (d *Dataset) RenameColumn(from, to string) {
	if !d.HasColumn(from) || d.HasColumn(to) {
		return
	}
	for i, c := range d.cols {
		if c == from {
			d.cols[i] = to
			break
		}
	}
	for _, r := range d.rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

// Clone returns a deep copy: new column slice, new row maps. Cell values are
// scalars and are shared.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		cols: make([]string, len(d.cols)),
		rows: make([]Row, 0, len(d.rows)),
	}
	copy(out.cols, d.cols)
	for _, r := range d.rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// Project returns a new dataset containing only the columns present in keep,
// preserving the dataset's own column order. Rows are copied.
func (d *Dataset) Project(keep []string) *Dataset {
	keepSet := make(map[string]struct{}, len(keep))
	for _, c := range keep {
		keepSet[c] = struct{}{}
	}
	cols := make([]string, 0, len(d.cols))
	for _, c := range d.cols {
		if _, ok := keepSet[c]; ok {
			cols = append(cols, c)
		}
	}
	out := New(cols...)
	for _, r := range d.rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// Filter returns a new dataset with the rows for which keep returns true.
// Rows are shared with the receiver.
func (d *Dataset) Filter(keep func(Row) bool) *Dataset {
	out := New(d.cols...)
	for _, r := range d.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// NullCount returns the number of null cells in the named column. An absent
// column counts every row as null.
func (d *Dataset) NullCount(name string) int {
	if !d.HasColumn(name) {
		return len(d.rows)
	}
	n := 0
	for _, r := range d.rows {
		if IsNull(r[name]) {
			n++
		}
	}
	return n
}

func (d *Dataset) addColumn(name string) {
	if !d.HasColumn(name) {
		d.cols = append(d.cols, name)
	}
}

// IsNull reports whether a cell value is null: nil or a floating NaN.
// The empty string is a value, not a null.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

// AsString renders common scalar types without fmt overhead; uncommon types
// fall back to fmt.Sprint. Null renders as "".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// AsFloat converts numeric scalars (and numeric strings) to float64.
// ok is false for null, non-numeric, and NaN values.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsTime converts a cell to time.Time, trying the given layouts in order
// for string values. ok is false when no layout matches.
func AsTime(v any, layouts ...string) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
