package structure

import (
	"strconv"
	"sync"
	"time"
)

// Identifier prefixes by origin.
const (
	PrefixGenerated = "gen_"
	PrefixRevived   = "rev_"
)

// IDMinter produces identifiers of the form "<prefix><unix-millis>".
//
// Identifiers are strictly increasing per minter: when the clock has not moved
// past the last minted value, the next millisecond is used instead, so two
// calls never return equal identifiers even within the same millisecond.
//
// Example:
//
//	m := structure.NewIDMinter(nil)
//	m.Next(structure.PrefixGenerated) // "gen_1718036400123"
type IDMinter struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDMinter returns a minter reading the given clock. A nil clock uses
// time.Now.
func NewIDMinter(now func() time.Time) *IDMinter {
	if now == nil {
		now = time.Now
	}
	return &IDMinter{now: now}
}

// Next mints a new identifier with the given prefix.
func (m *IDMinter) Next(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := m.now().UnixMilli()
	if ms <= m.last {
		ms = m.last + 1
	}
	m.last = ms
	return prefix + strconv.FormatInt(ms, 10)
}

// PrefixFor maps an origin to its identifier prefix.
func PrefixFor(o Origin) string {
	if o == OriginRevive {
		return PrefixRevived
	}
	return PrefixGenerated
}
