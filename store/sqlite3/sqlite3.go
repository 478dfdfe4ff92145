// Package sqlite3 implements an entry store in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
)

var _ ledger.Store = &Store{}

// Store is a Sqlite-based entry store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `slots` table if it does not exist.
// (If it does exist, it must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS slots (
  addr BLOB PRIMARY KEY NOT NULL,
  layout INTEGER NOT NULL,
  data BLOB NOT NULL
);
`

// New produces a new Store using `db` for storage.
// It expects to create table `slots`,
// or for that table already to exist with the correct schema.
// (See variable Schema.)
//
// Sqlite allows one writer at a time,
// so New limits db to a single open connection.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Read gets the slot at addr.
func (s *Store) Read(ctx context.Context, addr ledger.Address) (ledger.Slot, error) {
	return read(ctx, s.db, addr)
}

type queryRower interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func read(ctx context.Context, db queryRower, addr ledger.Address) (ledger.Slot, error) {
	const q = `SELECT layout, data FROM slots WHERE addr = ?`

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
func (s *Store) Commit(ctx context.Context, tx *ledger.Tx) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer dbtx.Rollback()

	err = tx.Check(func(addr ledger.Address) (bool, error) {
		_, err := read(ctx, dbtx, addr)
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
			const q = `INSERT INTO slots (addr, layout, data) VALUES (?, ?, ?)`
			_, err = dbtx.ExecContext(ctx, q, op.Addr, int(op.Slot.Layout), op.Slot.Data)

		case ledger.OpWrite:
			const q = `UPDATE slots SET layout = ?, data = ? WHERE addr = ?`
			_, err = dbtx.ExecContext(ctx, q, int(op.Slot.Layout), op.Slot.Data, op.Addr)

		case ledger.OpFree:
			const q = `DELETE FROM slots WHERE addr = ?`
			_, err = dbtx.ExecContext(ctx, q, op.Addr)
		}
		if err != nil {
			return errors.Wrapf(err, "applying %s to %s", op.Kind, op.Addr)
		}
	}

	return errors.Wrap(dbtx.Commit(), "committing transaction")
}

// Each calls f for each occupied address, in lexicographic order.
// The Store's one connection is busy until Each returns,
// so f must not call back into the Store.
func (s *Store) Each(ctx context.Context, f func(ledger.Address, ledger.Slot) error) error {
	const q = `SELECT addr, layout, data FROM slots ORDER BY addr`
	return sqlutil.ForQueryRows(ctx, s.db, q, func(addr ledger.Address, layout int, data []byte) error {
		return f(addr, ledger.Slot{Layout: ledger.Layout(layout), Data: data})
	})
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (ledger.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
