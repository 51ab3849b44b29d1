package core

import (
	"context"
	"database/sql"
	"strings"
)

type (
	// DBExecutor is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders orderings whose field is in `allowed` (column by API field name) as an ORDER BY list.
// Falls back to `def` when nothing usable is left.
func OrderBy(orderings []DBOrdering, allowed map[string]string, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(parts) == 0 {
		return def
	}
	return strings.Join(parts, ", ")
}

// Page is a 1-based page request.
type Page struct {
	Number  int `query:"page"`
	PerPage int `query:"per_page"`
}

func (p *Page) Clean(defPerPage int) {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = defPerPage
	}
}

func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }
