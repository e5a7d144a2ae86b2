package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

// OnConflictUpdate turns the insert into an upsert that overwrites update with
// the incoming values when columns collide.
func (b *InsertBuilder) OnConflictUpdate(columns []string, update ...string) *InsertBuilder {
	assignments := make([]string, len(update))
	for i, col := range update {
		assignments[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(columns, ", "), strings.Join(assignments, ", ")))
	return b
}

type DeleteBuilder struct {
	*sqlbuilder.DeleteBuilder
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

func NewSelectBuilder() *SelectBuilder {
	return &SelectBuilder{sqlbuilder.PostgreSQL.NewSelectBuilder()}
}

// Struct builds statements for a db-tagged row type using the Postgres flavor.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}

func (s *Struct) SelectFrom(table string) *SelectBuilder {
	return &SelectBuilder{s.Struct.SelectFrom(table)}
}

func (s *Struct) InsertInto(table string, v ...any) *InsertBuilder {
	return &InsertBuilder{s.Struct.InsertInto(table, v...)}
}

func (s *Struct) DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{s.Struct.DeleteFrom(table)}
}
