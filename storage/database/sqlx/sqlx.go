// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// trapNoRowsErr maps psql "no rows" err to the repository's not found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when a statement touched no row.
func checkAffected(res sql.Result, err, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// inTx runs fn in a transaction, committed when fn succeeds.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// insert runs a named INSERT ... RETURNING id.
func insert(ctx context.Context, ext sqlx.ExtContext, query string, arg interface{}) (int, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return 0, err
	}
	var id int
	err = sqlx.GetContext(ctx, ext, &id, ext.Rebind(q), args...)
	return id, err
}

// namedExec runs a named statement.
func namedExec(ctx context.Context, ext sqlx.ExtContext, query string, arg interface{}) (sql.Result, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, err
	}
	return ext.ExecContext(ctx, ext.Rebind(q), args...)
}

// where collects AND-ed conditions written with `?` bind vars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func nullInt(v int) null.Int {
	return null.NewInt(v, v != 0)
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}
