package order

// Status enumerates order fulfillment states. Retail orders walk
// PENDING → ACCEPTED → PROCESSING|SENT_TO_VENDOR → PACKED → SHIPPED →
// OUT_FOR_DELIVERY → DELIVERED. Booking orders walk PENDING → ACCEPTED →
// SENT_TO_VENDOR → CONFIRMED → COMPLETED. CANCELLED is reachable from any
// non-terminal state on both paths.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusAccepted       Status = "ACCEPTED"
	StatusProcessing     Status = "PROCESSING"
	StatusSentToVendor   Status = "SENT_TO_VENDOR"
	StatusPacked         Status = "PACKED"
	StatusShipped        Status = "SHIPPED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

var retailNext = map[Status][]Status{
	StatusPending:        {StatusAccepted},
	StatusAccepted:       {StatusProcessing, StatusSentToVendor},
	StatusProcessing:     {StatusPacked},
	StatusSentToVendor:   {StatusPacked},
	StatusPacked:         {StatusShipped},
	StatusShipped:        {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
}

var bookingNext = map[Status][]Status{
	StatusPending:      {StatusAccepted},
	StatusAccepted:     {StatusSentToVendor},
	StatusSentToVendor: {StatusConfirmed},
	StatusConfirmed:    {StatusCompleted},
}

// Terminal reports whether no further transition is allowed from s.
func Terminal(s Status) bool {
	return s == StatusDelivered || s == StatusCompleted || s == StatusCancelled
}

// Fulfilled reports whether s is a terminal fulfilled state. Entry into a
// fulfilled state is the settlement trigger.
func Fulfilled(s Status) bool {
	return s == StatusDelivered || s == StatusCompleted
}

// Valid reports whether s is a known status on either path.
func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusProcessing, StatusSentToVendor,
		StatusPacked, StatusShipped, StatusOutForDelivery, StatusDelivered,
		StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from→to is a legal move on the given path.
func CanTransition(from, to Status, booking bool) bool {
	if !Valid(from) || !Valid(to) || from == to {
		return false
	}
	if to == StatusCancelled {
		return !Terminal(from)
	}
	if Terminal(from) {
		return false
	}
	flow := retailNext
	if booking {
		flow = bookingNext
	}
	for _, next := range flow[from] {
		if next == to {
			return true
		}
	}
	return false
}
