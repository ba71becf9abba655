// Package budget enforces the pooled per-session search allowance.
package budget

import (
	"fmt"
	"sync"
)

// DefaultPerGame is the number of searches granted per game on the slate
const DefaultPerGame = 3

// Refusal explains why a search was not permitted
type Refusal struct {
	Allowed int    `json:"allowed"`
	Games   int    `json:"games"`
	Message string `json:"message"`
}

func (r *Refusal) Error() string {
	return r.Message
}

// Guard tracks one session's search allowance. The pool is shared across the
// whole slate; individual games are not ledgered.
type Guard struct {
	mu       sync.Mutex
	allowed  int
	games    int
	used     int
	inFlight int
}

// NewGuard creates a guard allowing perGame searches for each of games
func NewGuard(games, perGame int) *Guard {
	return &Guard{allowed: games * perGame, games: games}
}

// Reservation holds one search slot until it is committed or released
type Reservation struct {
	guard *Guard
	once  sync.Once
}

// Acquire reserves a slot. In-flight reservations count against the pool so
// concurrent searches cannot overshoot it.
func (g *Guard) Acquire() (*Reservation, *Refusal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.used+g.inFlight >= g.allowed {
		return nil, &Refusal{
			Allowed: g.allowed,
			Games:   g.games,
			Message: fmt.Sprintf("Search budget exhausted: used all %d searches for %d games", g.allowed, g.games),
		}
	}
	g.inFlight++
	return &Reservation{guard: g}, nil
}

// Commit consumes the reserved slot
func (r *Reservation) Commit() {
	r.once.Do(func() {
		r.guard.mu.Lock()
		r.guard.inFlight--
		r.guard.used++
		r.guard.mu.Unlock()
	})
}

// Release returns the reserved slot to the pool
func (r *Reservation) Release() {
	r.once.Do(func() {
		r.guard.mu.Lock()
		r.guard.inFlight--
		r.guard.mu.Unlock()
	})
}

// Allowed returns the total allowance
func (g *Guard) Allowed() int {
	return g.allowed
}

// Used returns the number of committed searches
func (g *Guard) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}

// Remaining returns searches still available, excluding in-flight ones
func (g *Guard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allowed - g.used - g.inFlight
}
