package simulator

import (
	"time"

	"github.com/xKony/x-automate/api/schemas"
)

// AccountSession is the mutable per-account state: the opaque authentication
// token, per-action-type timestamp logs for the rolling-window gate,
// per-fingerprint use counts for the duplicate-content guard, and cumulative
// counters.
//
// A session is owned by exactly one account loop; it is deliberately not
// safe for concurrent use.
type AccountSession struct {
	accountID string
	authToken string

	// log holds successful-action timestamps per type, oldest first.
	// Entries older than the widest rolling window are evicted on record.
	log map[schemas.ActionType][]time.Time

	// fingerprints counts successful uses of each normalized content
	// fingerprint within this session.
	fingerprints map[string]int

	counters   map[schemas.ActionType]int64
	lastAction time.Time
}

// NewAccountSession creates a fresh session for an account.
func NewAccountSession(accountID, authToken string) *AccountSession {
	return &AccountSession{
		accountID:    accountID,
		authToken:    authToken,
		log:          make(map[schemas.ActionType][]time.Time),
		fingerprints: make(map[string]int),
		counters:     make(map[schemas.ActionType]int64),
	}
}

// RestoreAccountSession rebuilds a session from a persisted snapshot. Only
// the token and cumulative counters survive a restart; timestamp logs and
// fingerprint counts are per-process state.
func RestoreAccountSession(snap *schemas.SessionSnapshot) *AccountSession {
	s := NewAccountSession(snap.AccountID, snap.AuthToken)
	for name, v := range snap.Counters {
		s.counters[schemas.ActionType(name)] = v
	}
	return s
}

// Snapshot captures the persistable view of the session. It never mutates
// the session, so snapshotting an untouched restored session reproduces the
// exact counters that were loaded.
func (s *AccountSession) Snapshot() *schemas.SessionSnapshot {
	counters := make(map[string]int64, len(s.counters))
	for t, v := range s.counters {
		counters[string(t)] = v
	}
	return &schemas.SessionSnapshot{
		AccountID: s.accountID,
		AuthToken: s.authToken,
		Counters:  counters,
	}
}

// AccountID returns the owning account's identifier.
func (s *AccountSession) AccountID() string { return s.accountID }

// AuthToken returns the opaque credential reference.
func (s *AccountSession) AuthToken() string { return s.authToken }

// LastActionAt returns the timestamp of the most recent successful action of
// any type, or the zero time when none has happened yet.
func (s *AccountSession) LastActionAt() time.Time { return s.lastAction }

// CountInWindow returns how many successful actions of the given type landed
// within the trailing window ending at now. Evaluated lazily; no timers.
func (s *AccountSession) CountInWindow(t schemas.ActionType, window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)
	entries := s.log[t]
	// Entries are ordered; scan from the back where the recent ones live.
	n := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Before(cutoff) || entries[i].Equal(cutoff) {
			break
		}
		n++
	}
	return n
}

// FingerprintUses returns how many successful actions referenced the given
// content fingerprint in this session.
func (s *AccountSession) FingerprintUses(fp string) int { return s.fingerprints[fp] }

// Counter returns the cumulative successful-action count for a type.
func (s *AccountSession) Counter(t schemas.ActionType) int64 { return s.counters[t] }

// TotalActions returns the cumulative count across all action types.
func (s *AccountSession) TotalActions() int64 {
	var total int64
	for _, v := range s.counters {
		total += v
	}
	return total
}

// RecordSuccess appends a confirmed action to the session: timestamp log,
// cumulative counter, and (for content-bearing actions) the fingerprint use
// count. Log entries older than widest are trimmed while we are here.
func (s *AccountSession) RecordSuccess(t schemas.ActionType, fingerprint string, now time.Time, widest time.Duration) {
	entries := append(s.log[t], now)

	cutoff := now.Add(-widest)
	trim := 0
	for trim < len(entries) && !entries[trim].After(cutoff) {
		trim++
	}
	s.log[t] = entries[trim:]

	s.counters[t]++
	s.lastAction = now
	if fingerprint != "" {
		s.fingerprints[fingerprint]++
	}
}
