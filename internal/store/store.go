// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements the persistence layer of the label taxonomy:
// categories, the label tree, and label-item associations, all on plain
// database/sql over the pgx driver.
//
// Soft deletion is uniform: every read in this package applies the same
// not-deleted predicate, so a forgotten filter cannot resurrect deleted
// rows in a new query. In-store uniqueness pre-checks are an optimization
// only; the partial unique indexes created by the migrations are the
// authoritative guard, and unique-violation errors from the database are
// mapped back onto the same error kinds the pre-checks return.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// notDeleted is the shared soft-delete predicate. Append with the table
// alias where a query joins more than one table.
const notDeleted = "deleted_at IS NULL"

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// letting validation and insert paths run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally restricted to a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// inPlaceholders builds "$start, $start+1, ..." for n values, for IN
// clauses over a variable-length id set.
func inPlaceholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}
