package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// GroupStatus is the lifecycle state of an order group.
type GroupStatus string

const (
	GroupStatusPending    GroupStatus = "pending"
	GroupStatusSubmitting GroupStatus = "submitting"
	GroupStatusPartial    GroupStatus = "partial"
	GroupStatusComplete   GroupStatus = "complete"
	GroupStatusFailed     GroupStatus = "failed"
	GroupStatusCanceled   GroupStatus = "canceled"
)

// IsTerminal reports whether the group can no longer transition.
// PARTIAL is not terminal: the leg risk it represents stays open until
// an operator resolves it.
func (s GroupStatus) IsTerminal() bool {
	return s == GroupStatusComplete || s == GroupStatusFailed || s == GroupStatusCanceled
}

// Group is the set of orders capturing one opportunity, one order per
// leg. Legs are quantity-scaled copies of the opportunity's unit legs.
type Group struct {
	ID            string                  `json:"id"`
	OpportunityID string                  `json:"opportunity_id"`
	Legs          []arbitrage.Leg         `json:"legs"`
	Orders        map[string]*types.Order `json:"orders"`
	Status        GroupStatus             `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
	CompletedAt   *time.Time              `json:"completed_at,omitempty"`
	Err           string                  `json:"error,omitempty"`
}

// newGroup builds a pending group with legs scaled to the per-leg
// quantity.
func newGroup(opp *arbitrage.Opportunity, quantity int) *Group {
	legs := make([]arbitrage.Leg, len(opp.Legs))
	for i, leg := range opp.Legs {
		leg.Quantity *= quantity
		legs[i] = leg
	}

	return &Group{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		Legs:          legs,
		Orders:        make(map[string]*types.Order, len(legs)),
		Status:        GroupStatusPending,
		CreatedAt:     time.Now(),
	}
}

// FilledLegs counts legs whose orders fully executed.
func (g *Group) FilledLegs() int {
	filled := 0
	for _, order := range g.Orders {
		if order.Status == types.OrderStatusExecuted {
			filled++
		}
	}
	return filled
}

// TotalFilledCount sums filled contracts across the group's orders.
func (g *Group) TotalFilledCount() int {
	total := 0
	for _, order := range g.Orders {
		total += order.FilledCount()
	}
	return total
}
