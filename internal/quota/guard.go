// Package quota bounds the number of analyses one session may run.
package quota

import (
	"github.com/spigell/resume-analyzer/internal/apperr"
)

// Guard counts reserved analyses for a single session. It is not safe for
// concurrent use.
type Guard struct {
	limit int
	used  int
}

// NewGuard returns a guard allowing limit analyses. A non-positive limit
// allows none.
func NewGuard(limit int) *Guard {
	if limit < 0 {
		limit = 0
	}
	return &Guard{limit: limit}
}

// CheckAndReserve consumes one unit of quota. The unit is charged before the
// analysis runs, so a failed analysis still counts.
func (g *Guard) CheckAndReserve() error {
	if g.used >= g.limit {
		return &apperr.QuotaExceededError{Limit: g.limit}
	}
	g.used++
	return nil
}

// Remaining reports max(0, limit-used).
func (g *Guard) Remaining() int {
	return max(0, g.limit-g.used)
}

func (g *Guard) Used() int  { return g.used }
func (g *Guard) Limit() int { return g.limit }
