package orders

import (
	"time"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

// transitions lists the permitted successors of each status.
var transitions = map[Status][]Status{
	StatusPlaced:    {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
// Staying in the same status is not an edge; Advance treats it as a no-op.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves o to status to and stamps ReadyTime or CompletedTime.
// It returns changed=false when o is already in to.
func Advance(o Order, to Status, now time.Time) (next Order, changed bool, err error) {
	if o.Status == to {
		return o, false, nil
	}
	if !CanTransition(o.Status, to) {
		return o, false, apperr.InvalidTransition("order %s cannot move from %s to %s", o.OrderID, o.Status, to)
	}
	// keep OrderTime <= ReadyTime <= CompletedTime even if clocks disagree
	if now.Before(o.OrderTime) {
		now = o.OrderTime
	}
	next = o
	next.Status = to
	switch to {
	case StatusReady:
		t := now
		next.ReadyTime = &t
	case StatusCompleted, StatusCancelled:
		if o.ReadyTime != nil && now.Before(*o.ReadyTime) {
			now = *o.ReadyTime
		}
		t := now
		next.CompletedTime = &t
	}
	return next, true, nil
}
