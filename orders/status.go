package orders

import (
	"errors"
	"fmt"

	"musa/models"
)

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// transitions lists the statuses each status may move to. Completed and
// cancelled orders are final.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderCompleted, models.OrderCancelled},
	models.OrderCompleted: nil,
	models.OrderCancelled: nil,
}

// CanTransition reports whether an order may move from one status to
// another. Re-applying the current status is allowed so the delivery date
// can be changed on its own.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return from.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition with an error describing the refusal.
func CheckTransition(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// NextStatuses is what an admin may choose for an order in status s.
func NextStatuses(s models.OrderStatus) []models.OrderStatus {
	next := transitions[s]
	out := make([]models.OrderStatus, 0, len(next)+1)
	if s.Valid() {
		out = append(out, s)
	}
	return append(out, next...)
}

// Actions are the per-order affordances shown in order lists.
type Actions struct {
	ViewDetails     bool                 `json:"canViewDetails"`
	DownloadInvoice bool                 `json:"canDownloadInvoice"`
	CreateInvoice   bool                 `json:"canCreateInvoice"`
	NextStatuses    []models.OrderStatus `json:"nextStatuses,omitempty"`
}

// CustomerActions: details stay locked until an order completes, but an
// issued invoice can always be downloaded.
func CustomerActions(o models.Order) Actions {
	locked := o.Status == models.OrderPending || o.Status == models.OrderConfirmed || o.Status == models.OrderCancelled
	return Actions{
		ViewDetails:     !locked,
		DownloadInvoice: o.HasInvoice(),
	}
}

func AdminActions(o models.Order) Actions {
	return Actions{
		ViewDetails:     true,
		DownloadInvoice: o.HasInvoice(),
		CreateInvoice:   !o.HasInvoice() && o.Status != models.OrderCancelled,
		NextStatuses:    NextStatuses(o.Status),
	}
}
