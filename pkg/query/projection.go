// Package query builds parameterized SELECT statements over a projected table.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view field names to qualified columns of one table.
type ProjectionMap struct {
	table   string
	alias   string
	columns map[string]string
	list    []string
}

// NewProjectionMap creates a projection over table, aliased as alias.
func NewProjectionMap(table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps field to alias.column and adds it to the select list.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[field] = qualified
	p.list = append(p.list, qualified)
	return p
}

// From returns the table reference with its alias.
func (p *ProjectionMap) From() string {
	return fmt.Sprintf("%s %s", p.table, p.alias)
}

// Column returns the qualified column for field.
func (p *ProjectionMap) Column(field string) (string, bool) {
	col, ok := p.columns[field]
	return col, ok
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.list, ", ")
}
