// internal/session/store.go
package session

import (
	"sync"

	"github.com/rovshanmuradov/drift-terminal/internal/account"
	"github.com/rovshanmuradov/drift-terminal/internal/drift"
)

// Store is the process-wide session slot: current client handle, the loaded
// subaccount records and an optional selection. A successful lookup replaces
// the slot wholesale; records from different sessions are never merged.
// Concurrent lookups race last-writer-wins, which is accepted here.
type Store struct {
	mu       sync.RWMutex
	client   drift.Client
	records  []account.SubaccountRecord
	summary  account.PortfolioSummary
	selected *account.SubaccountRecord
	viewOnly bool
}

func NewStore() *Store {
	return &Store{}
}

// Replace installs a new session, dropping whatever was there. The previous
// client, if any, is unsubscribed.
func (s *Store) Replace(client drift.Client, records []account.SubaccountRecord, summary account.PortfolioSummary, viewOnly bool) {
	s.mu.Lock()
	previous := s.client
	s.client = client
	s.records = records
	s.summary = summary
	s.selected = nil
	s.viewOnly = viewOnly
	s.mu.Unlock()

	if previous != nil && previous != client {
		_ = previous.Unsubscribe()
	}
}

// Client returns the current handle, or nil when no session is active.
func (s *Store) Client() drift.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// ViewOnly reports whether the active session is read-only.
func (s *Store) ViewOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewOnly
}

// Records returns the loaded subaccounts and their summary.
func (s *Store) Records() ([]account.SubaccountRecord, account.PortfolioSummary) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records, s.summary
}

// Select marks one loaded subaccount as current. Unknown ids clear the
// selection.
func (s *Store) Select(subAccountID uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.records {
		if s.records[idx].SubAccountID == subAccountID {
			s.selected = &s.records[idx]
			return true
		}
	}
	s.selected = nil
	return false
}

// Selected returns the currently selected subaccount, or false.
func (s *Store) Selected() (account.SubaccountRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return account.SubaccountRecord{}, false
	}
	return *s.selected, true
}

// Reset clears the slot, unsubscribing the active client.
func (s *Store) Reset() {
	s.mu.Lock()
	previous := s.client
	s.client = nil
	s.records = nil
	s.summary = account.PortfolioSummary{}
	s.selected = nil
	s.viewOnly = false
	s.mu.Unlock()

	if previous != nil {
		_ = previous.Unsubscribe()
	}
}
