package checkout

// State is a step of one checkout attempt.
type State int

const (
	StateValidating State = iota
	StateObtainingOrder
	StateReservingStock
	StateAwaitingGateway
	StateFinalizing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateObtainingOrder:
		return "obtaining_order"
	case StateReservingStock:
		return "reserving_stock"
	case StateAwaitingGateway:
		return "awaiting_gateway"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
