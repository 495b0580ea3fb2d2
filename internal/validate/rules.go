package validate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"logiflow/internal/dataset"
)

// Kind discriminates the rule variants.
type Kind string

const (
	KindNull     Kind = "null"
	KindSchema   Kind = "schema"
	KindUnique   Kind = "unique"
	KindRange    Kind = "range"
	KindBusiness Kind = "business"
)

// Predicate checks one row; returning false marks the row as a violation.
type Predicate func(dataset.Row) bool

// Rule is one declarative check. Kind selects the variant; only the fields
// belonging to that variant are consulted.
type Rule struct {
	Kind     Kind
	Severity Severity

	// null, range
	Column string
	// null
	MaxNullFraction float64
	// schema: column name -> expected type
	Types map[string]string
	// unique
	Columns []string
	// range, inclusive; nil leaves that side unbounded
	Min *float64
	Max *float64
	// business
	Name        string
	Description string
	Check       Predicate
}

// RuleName derives the identifier the rule reports under.
func (r Rule) RuleName() string {
	switch r.Kind {
	case KindNull:
		return "null_check_" + r.Column
	case KindSchema:
		return "schema_check"
	case KindUnique:
		return "unique_check_" + strings.Join(r.Columns, ",")
	case KindRange:
		return "range_check_" + r.Column
	case KindBusiness:
		return "business_rule_" + r.Name
	}
	return string(r.Kind)
}

// RuleSet holds the ordered checks for one table. The Add methods return the
// receiver so a set can be built as a chain.
type RuleSet struct {
	Table string
	rules []Rule
}

func NewRuleSet(table string) *RuleSet {
	return &RuleSet{Table: table}
}

// Add appends an already-built rule.
func (rs *RuleSet) Add(r Rule) *RuleSet {
	rs.rules = append(rs.rules, r)
	return rs
}

// AddNullCheck fails when the fraction of null values in column exceeds
// maxNullFraction, or when the column is absent.
func (rs *RuleSet) AddNullCheck(column string, maxNullFraction float64, severity Severity) *RuleSet {
	return rs.Add(Rule{Kind: KindNull, Column: column, MaxNullFraction: maxNullFraction, Severity: severity})
}

// AddSchemaCheck fails listing every missing column and type mismatch in
// types, a column name to expected type mapping.
func (rs *RuleSet) AddSchemaCheck(types map[string]string, severity Severity) *RuleSet {
	return rs.Add(Rule{Kind: KindSchema, Types: types, Severity: severity})
}

// AddUniqueCheck fails when any combination of values across columns occurs
// more than once.
func (rs *RuleSet) AddUniqueCheck(columns []string, severity Severity) *RuleSet {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return rs.Add(Rule{Kind: KindUnique, Columns: cols, Severity: severity})
}

// AddRangeCheck fails when any value in column lies outside the inclusive
// [min, max] range.
func (rs *RuleSet) AddRangeCheck(column string, min, max *float64, severity Severity) *RuleSet {
	return rs.Add(Rule{Kind: KindRange, Column: column, Min: min, Max: max, Severity: severity})
}

// AddBusinessRule fails when check returns false for any row. A panic inside
// check is caught and reported as a failed result at SeverityError.
func (rs *RuleSet) AddBusinessRule(name string, check Predicate, description string, severity Severity) *RuleSet {
	return rs.Add(Rule{Kind: KindBusiness, Name: name, Check: check, Description: description, Severity: severity})
}

// Rules returns a copy of the registered rules in registration order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

// Validate runs every rule, in registration order, against ds. All rules
// always run; nothing short-circuits, so the report is exhaustive. The
// dataset is never modified.
func (rs *RuleSet) Validate(ds *dataset.Dataset) Report {
	rep := Report{Table: rs.Table, RowCount: ds.Len(), Results: make([]Result, 0, len(rs.rules))}
	for _, r := range rs.rules {
		rep.Results = append(rep.Results, evalRule(r, ds))
	}
	return rep
}

func evalRule(r Rule, ds *dataset.Dataset) Result {
	switch r.Kind {
	case KindNull:
		return evalNull(r, ds)
	case KindSchema:
		return evalSchema(r, ds)
	case KindUnique:
		return evalUnique(r, ds)
	case KindRange:
		return evalRange(r, ds)
	case KindBusiness:
		return evalBusiness(r, ds)
	}
	return Result{
		Rule:     r.RuleName(),
		Passed:   false,
		Severity: SeverityError,
		Message:  fmt.Sprintf("unknown rule kind %q", r.Kind),
	}
}

func evalNull(r Rule, ds *dataset.Dataset) Result {
	name := r.RuleName()
	if !ds.HasColumn(r.Column) {
		return Result{
			Rule:     name,
			Passed:   false,
			Severity: r.Severity,
			Message:  fmt.Sprintf("column %q not found in dataset", r.Column),
			Details:  map[string]any{"column": r.Column},
		}
	}
	frac := 0.0
	if n := ds.Len(); n > 0 {
		frac = float64(ds.NullCount(r.Column)) / float64(n)
	}
	passed := frac <= r.MaxNullFraction
	verdict := "PASS"
	if !passed {
		verdict = "FAIL"
	}
	return Result{
		Rule:     name,
		Passed:   passed,
		Severity: r.Severity,
		Message: fmt.Sprintf("column %q null check: %.2f%% null (%s, threshold: %.2f%%)",
			r.Column, frac*100, verdict, r.MaxNullFraction*100),
		Details: map[string]any{
			"column":        r.Column,
			"null_fraction": math.Round(frac*1e4) / 1e4,
			"threshold":     r.MaxNullFraction,
		},
	}
}

func evalSchema(r Rule, ds *dataset.Dataset) Result {
	cols := make([]string, 0, len(r.Types))
	for c := range r.Types {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	mismatches := make([]string, 0)
	for _, col := range cols {
		if !ds.HasColumn(col) {
			mismatches = append(mismatches, "missing column: "+col)
			continue
		}
		expected := normalizeKind(r.Types[col])
		if got, ok := observedMismatch(ds, col, expected); ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %s, got %s", col, expected, got))
		}
	}

	passed := len(mismatches) == 0
	msg := "schema validation passed"
	if !passed {
		msg = "schema mismatches: " + strings.Join(mismatches, "; ")
	}
	return Result{
		Rule:     r.RuleName(),
		Passed:   passed,
		Severity: r.Severity,
		Message:  msg,
		Details:  map[string]any{"mismatches": mismatches},
	}
}

// observedMismatch scans the column and reports the first value kind that
// disagrees with expected. Null cells carry no type and are skipped.
func observedMismatch(ds *dataset.Dataset, col, expected string) (string, bool) {
	for _, row := range ds.Rows() {
		v, ok := row[col]
		if !ok || dataset.IsNull(v) {
			continue
		}
		if got := kindOf(v); got != expected {
			return got, true
		}
	}
	return "", false
}

func evalUnique(r Rule, ds *dataset.Dataset) Result {
	name := r.RuleName()
	existing := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		if ds.HasColumn(c) {
			existing = append(existing, c)
		}
	}
	if len(existing) == 0 {
		return Result{
			Rule:     name,
			Passed:   false,
			Severity: r.Severity,
			Message:  fmt.Sprintf("none of the rule's columns exist: %v", r.Columns),
			Details:  map[string]any{"columns": r.Columns},
		}
	}

	seen := make(map[string]struct{}, ds.Len())
	duplicates := 0
	for _, row := range ds.Rows() {
		key := compositeKey(row, existing)
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}

	passed := duplicates == 0
	return Result{
		Rule:     name,
		Passed:   passed,
		Severity: r.Severity,
		Message:  fmt.Sprintf("uniqueness check on %v: %d duplicates found", existing, duplicates),
		Details:  map[string]any{"columns": existing, "duplicate_count": duplicates},
	}
}

// compositeKey builds a string key from the given columns. Values are joined
// with 0x1f; a null cell is marked 0x00 so null compares equal to null.
func compositeKey(row dataset.Row, cols []string) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		v, ok := row[c]
		if !ok || dataset.IsNull(v) {
			b.WriteByte(0x00)
			continue
		}
		b.WriteString(dataset.AsString(v))
	}
	return b.String()
}

func evalRange(r Rule, ds *dataset.Dataset) Result {
	name := r.RuleName()
	if !ds.HasColumn(r.Column) {
		return Result{
			Rule:     name,
			Passed:   false,
			Severity: r.Severity,
			Message:  fmt.Sprintf("column %q not found", r.Column),
			Details:  map[string]any{"column": r.Column},
		}
	}

	violations := 0
	var obsMin, obsMax *float64
	for _, row := range ds.Rows() {
		v, ok := row[r.Column]
		if !ok || dataset.IsNull(v) {
			continue
		}
		f, numeric := dataset.AsFloat(v)
		if !numeric {
			// a non-numeric value can never satisfy a numeric range
			violations++
			continue
		}
		if obsMin == nil || f < *obsMin {
			obsMin = &f
		}
		if obsMax == nil || f > *obsMax {
			obsMax = &f
		}
		if r.Min != nil && f < *r.Min {
			violations++
			continue
		}
		if r.Max != nil && f > *r.Max {
			violations++
		}
	}

	passed := violations == 0
	return Result{
		Rule:     name,
		Passed:   passed,
		Severity: r.Severity,
		Message: fmt.Sprintf("range check on %q: observed [%s, %s], %d violations",
			r.Column, fmtBound(obsMin), fmtBound(obsMax), violations),
		Details: map[string]any{
			"column":       r.Column,
			"expected_min": r.Min,
			"expected_max": r.Max,
			"observed_min": obsMin,
			"observed_max": obsMax,
			"violations":   violations,
		},
	}
}

// fmtBound renders an optional float for report messages.
func fmtBound(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func evalBusiness(r Rule, ds *dataset.Dataset) (res Result) {
	name := r.RuleName()
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{
				Rule:     name,
				Passed:   false,
				Severity: SeverityError,
				Message:  fmt.Sprintf("error evaluating rule: %v", rec),
				Details:  map[string]any{"error": fmt.Sprintf("%v", rec)},
			}
		}
	}()

	if r.Check == nil {
		return Result{
			Rule:     name,
			Passed:   false,
			Severity: SeverityError,
			Message:  "error evaluating rule: no predicate configured",
			Details:  map[string]any{"error": "no predicate configured"},
		}
	}

	violations := 0
	for _, row := range ds.Rows() {
		if !r.Check(row) {
			violations++
		}
	}

	pct := 0.0
	if n := ds.Len(); n > 0 {
		pct = math.Round(float64(violations)/float64(n)*100*100) / 100
	}
	passed := violations == 0
	return Result{
		Rule:     name,
		Passed:   passed,
		Severity: r.Severity,
		Message:  fmt.Sprintf("%s: %d violations", r.Description, violations),
		Details: map[string]any{
			"rule":          r.Name,
			"description":   r.Description,
			"violations":    violations,
			"violation_pct": pct,
		},
	}
}

// normalizeKind maps schema type names onto the small set of value kinds the
// checker compares against. It accepts database-ish names (bigint, numeric,
// timestamptz, varchar, ...).
//
// Examples:
//
//	"bigint", "int8", "integer" → "int"
//	"numeric", "decimal"        → "float"
//	"date", "timestamptz"       → "timestamp"
//	"text", "varchar"           → "string"
func normalizeKind(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "bigint", "int8", "integer", "int4", "int2", "smallint", "int":
		return "int"
	case "real", "float", "float4", "float8", "double", "numeric", "decimal", "number":
		return "float"
	case "boolean", "bool":
		return "bool"
	case "date", "timestamp", "timestamptz", "datetime":
		return "timestamp"
	case "text", "string", "varchar", "char", "object":
		return "string"
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}

// kindOf reports the value kind of a cell.
func kindOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "float"
	case time.Time:
		return "timestamp"
	}
	return fmt.Sprintf("%T", v)
}
