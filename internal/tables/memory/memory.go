// Package memory provides an in-memory implementation of the table
// ports, used for tests and local runs without persistence.
package memory

import (
	"context"
	"sync"

	"caixinha/internal/core"
	"caixinha/internal/tables"
)

type Store struct {
	mu       sync.Mutex
	ledger   []core.LedgerEntry
	debtors  []core.Debtor
	requests []core.PurchaseRequest
}

var _ tables.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed replaces all three tables at once, bypassing context plumbing.
// Intended for test setup.
func (s *Store) Seed(ledger []core.LedgerEntry, debtors []core.Debtor, requests []core.PurchaseRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append([]core.LedgerEntry(nil), ledger...)
	s.debtors = append([]core.Debtor(nil), debtors...)
	s.requests = append([]core.PurchaseRequest(nil), requests...)
}

func (s *Store) LoadLedger(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerEntry(nil), s.ledger...), nil
}

func (s *Store) ReplaceLedger(_ context.Context, entries []core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append([]core.LedgerEntry(nil), entries...)
	return nil
}

func (s *Store) LoadDebtors(_ context.Context) ([]core.Debtor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Debtor(nil), s.debtors...), nil
}

func (s *Store) ReplaceDebtors(_ context.Context, debtors []core.Debtor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debtors = append([]core.Debtor(nil), debtors...)
	return nil
}

func (s *Store) LoadRequests(_ context.Context) ([]core.PurchaseRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PurchaseRequest(nil), s.requests...), nil
}

func (s *Store) ReplaceRequests(_ context.Context, requests []core.PurchaseRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append([]core.PurchaseRequest(nil), requests...)
	return nil
}
