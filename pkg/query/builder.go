package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField is one ORDER BY term, named by view field.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "filename,-analyzed_at" style input. A leading "-"
// sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if after, ok := strings.CutPrefix(part, "-"); ok {
			fields = append(fields, SortField{Field: after, Descending: true})
			continue
		}
		fields = append(fields, SortField{Field: part})
	}
	return fields
}

type condition struct {
	clause string
	args   []any
}

// Builder accumulates conditions and ordering, numbering placeholders when a
// statement is built. Fields outside the projection are ignored.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	order       []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder over projection. defaultSort applies when
// OrderBy is never given a usable field.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// OrderBy replaces the default ordering.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	b.order = fields
	return b
}

// WhereEquals adds field = value. Nil values and nil pointers are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	col, ok := b.projection.Column(field)
	if !ok || isNil(value) {
		return b
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.Pointer {
		value = v.Elem().Interface()
	}
	b.conditions = append(b.conditions, condition{
		clause: col + " = ?",
		args:   []any{value},
	})
	return b
}

// WhereSearch matches term case-insensitively against any of fields. LIKE
// wildcards in term match literally.
func (b *Builder) WhereSearch(term string, fields ...string) *Builder {
	if term == "" {
		return b
	}

	pattern := "%" + likeEscaper.Replace(term) + "%"
	var (
		clauses []string
		args    []any
	)
	for _, f := range fields {
		col, ok := b.projection.Column(f)
		if !ok {
			continue
		}
		clauses = append(clauses, col+" ILIKE ?")
		args = append(args, pattern)
	}
	if len(clauses) == 0 {
		return b
	}

	b.conditions = append(b.conditions, condition{
		clause: "(" + strings.Join(clauses, " OR ") + ")",
		args:   args,
	})
	return b
}

// BuildCount returns a COUNT(*) statement over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT count(*) FROM %s%s", b.projection.From(), where), args
}

// BuildPage returns a SELECT of one page with ordering.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.where()
	n := len(args)
	args = append(args, pageSize, (page-1)*pageSize)

	q := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		b.projection.Columns(),
		b.projection.From(),
		where,
		b.orderBy(),
		n+1, n+2,
	)
	return q, args
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var (
		clauses []string
		args    []any
	)
	for _, c := range b.conditions {
		clause := c.clause
		for _, arg := range c.args {
			args = append(args, arg)
			clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		clauses = append(clauses, clause)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Builder) orderBy() string {
	terms := b.terms(b.order)
	if len(terms) == 0 {
		terms = b.terms(b.defaultSort)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) terms(fields []SortField) []string {
	var terms []string
	for _, f := range fields {
		col, ok := b.projection.Column(f.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	return terms
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
