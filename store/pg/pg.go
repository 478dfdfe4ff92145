// Package pg implements an entry store in a Postgresql database.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
)

var _ ledger.Store = &Store{}

// Store is a Postgresql-based entry store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `slots` table if it does not exist.
// (If it does exist, it must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS slots (
  addr BYTEA PRIMARY KEY NOT NULL,
  layout SMALLINT NOT NULL,
  data BYTEA NOT NULL
);
`

// New produces a new Store using `db` for storage.
// It expects to create table `slots`,
// or for that table already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

type queryRower interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Read gets the slot at addr.
func (s *Store) Read(ctx context.Context, addr ledger.Address) (ledger.Slot, error) {
	const q = `SELECT layout, data FROM slots WHERE addr = $1`
	return read(ctx, s.db, q, addr)
}

func read(ctx context.Context, db queryRower, q string, addr ledger.Address) (ledger.Slot, error) {
	var (
		layout int
		data   []byte
	)
	err := db.QueryRowContext(ctx, q, addr).Scan(&layout, &data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return ledger.Slot{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Slot{}, errors.Wrapf(err, "reading %s", addr)
	}
	return ledger.Slot{Layout: ledger.Layout(layout), Data: data}, nil
}

// Commit applies tx in a single database transaction.
// Rows that tx writes or frees are locked while it is checked,
// and a concurrent allocation of the same address
// surfaces as ledger.ErrAlreadyExists.
func (s *Store) Commit(ctx context.Context, tx *ledger.Tx) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer dbtx.Rollback()

	err = tx.Check(func(addr ledger.Address) (bool, error) {
		const q = `SELECT layout, data FROM slots WHERE addr = $1 FOR UPDATE`
		_, err := read(ctx, dbtx, q, addr)
		if errors.Is(err, ledger.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return err
	}

	for _, op := range tx.Ops {
		switch op.Kind {
		case ledger.OpAllocate:
			const q = `INSERT INTO slots (addr, layout, data) VALUES ($1, $2, $3)`
			_, err = dbtx.ExecContext(ctx, q, op.Addr, int(op.Slot.Layout), op.Slot.Data)
			if isUniqueViolation(err) {
				return errors.Wrapf(ledger.ErrAlreadyExists, "allocating %s", op.Addr)
			}

		case ledger.OpWrite:
			const q = `UPDATE slots SET layout = $2, data = $3 WHERE addr = $1`
			_, err = dbtx.ExecContext(ctx, q, op.Addr, int(op.Slot.Layout), op.Slot.Data)

		case ledger.OpFree:
			const q = `DELETE FROM slots WHERE addr = $1`
			_, err = dbtx.ExecContext(ctx, q, op.Addr)
		}
		if err != nil {
			return errors.Wrapf(err, "applying %s to %s", op.Kind, op.Addr)
		}
	}

	err = dbtx.Commit()
	if isUniqueViolation(err) {
		return ledger.ErrAlreadyExists
	}
	return errors.Wrap(err, "committing transaction")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrs.As(err, &pqErr) && pqErr.Code == "23505"
}

// Each calls f for each occupied address, in lexicographic order.
func (s *Store) Each(ctx context.Context, f func(ledger.Address, ledger.Slot) error) error {
	const q = `SELECT addr, layout, data FROM slots ORDER BY addr`
	return sqlutil.ForQueryRows(ctx, s.db, q, func(addr ledger.Address, layout int, data []byte) error {
		return f(addr, ledger.Slot{Layout: ledger.Layout(layout), Data: data})
	})
}

func init() {
	store.Register("pg", func(ctx context.Context, conf map[string]interface{}) (ledger.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
