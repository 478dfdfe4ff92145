// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/ledger"
	"github.com/bobg/ledger/store"
)

var _ ledger.Store = &Store{}

// Store is a ledger.Store that logs each operation on a nested Store.
type Store struct {
	s   ledger.Store
	log log.FieldLogger
}

// New produces a Store that logs to logger.
// A nil logger means the logrus standard logger.
func New(s ledger.Store, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{s: s, log: logger}
}

// Read reads addr from the nested store, logging at debug level.
func (s *Store) Read(ctx context.Context, addr ledger.Address) (ledger.Slot, error) {
	slot, err := s.s.Read(ctx, addr)
	entry := s.log.WithField("addr", addr)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		entry.Debug("Read: not found")
	case err != nil:
		entry.WithError(err).Error("Read")
	default:
		entry.WithField("layout", slot.Layout).Debug("Read")
	}
	return slot, err
}

// Commit commits tx to the nested store and logs each op it applied.
func (s *Store) Commit(ctx context.Context, tx *ledger.Tx) error {
	err := s.s.Commit(ctx, tx)
	if err != nil {
		s.log.WithError(err).WithField("ops", len(tx.Ops)).Warn("Commit failed")
		return err
	}
	for _, op := range tx.Ops {
		s.log.WithFields(log.Fields{
			"op":     op.Kind,
			"addr":   op.Addr,
			"layout": op.Slot.Layout,
			"size":   len(op.Slot.Data),
		}).Info("Commit")
	}
	return nil
}

// Each delegates to the nested store, logging errors from f.
func (s *Store) Each(ctx context.Context, f func(ledger.Address, ledger.Slot) error) error {
	s.log.Debug("Each")
	return s.s.Each(ctx, func(addr ledger.Address, slot ledger.Slot) error {
		err := f(addr, slot)
		if err != nil {
			s.log.WithError(err).WithField("addr", addr).Error("in Each")
		}
		return err
	})
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (ledger.Store, error) {
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		logger := log.New()
		if levelStr, ok := conf["level"].(string); ok {
			level, err := log.ParseLevel(levelStr)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing level %s", levelStr)
			}
			logger.SetLevel(level)
		}
		return New(nested, logger), nil
	})
}
