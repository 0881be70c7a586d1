package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.  A booking
// moves through these states only via the escrow service's state machine;
// rows are never hard-deleted, cancelled bookings remain for audit.
type BookingStatus string

const (
    StatusPending       BookingStatus = "PENDING"        // created, awaiting payment
    StatusPaymentLocked BookingStatus = "PAYMENT_LOCKED" // funds locked in escrow
    StatusCheckedIn     BookingStatus = "CHECKED_IN"     // guest has checked in
    StatusCompleted     BookingStatus = "COMPLETED"      // stay finished
    StatusSettled       BookingStatus = "SETTLED"        // funds released to host (terminal)
    StatusCancelled     BookingStatus = "CANCELLED"      // cancelled and refundable (terminal)
)

// Valid reports whether s is one of the six defined booking states.
func (s BookingStatus) Valid() bool {
    switch s {
    case StatusPending, StatusPaymentLocked, StatusCheckedIn,
        StatusCompleted, StatusSettled, StatusCancelled:
        return true
    }
    return false
}

// Booking records a guest's reservation of a property from a host for a
// date range.  Monetary amounts are stored in minor units (cents) to avoid
// floating point drift.
//
// Fields:
//  ID                 – primary key (UUID).
//  PropertyID         – property being booked.
//  GuestID            – user who made the booking.
//  HostID             – user who owns the property.
//  CheckInDate        – first night of the stay.
//  CheckOutDate       – checkout day; must be after CheckInDate.
//  NumGuests          – number of guests on the reservation.
//  TotalPriceCents    – total price in minor units.
//  Currency           – ISO currency or asset code.
//  Status             – current lifecycle state.
//  CheckedInAt        – set exactly when the booking reaches CHECKED_IN.
//  CancelledAt        – set when the booking reaches CANCELLED.
//  CancellationReason – optional free-form reason for cancellation.
type Booking struct {
    ID                 string         // bookings.id
    PropertyID         string         // bookings.property_id
    GuestID            string         // bookings.guest_id
    HostID             string         // bookings.host_id
    CheckInDate        time.Time      // bookings.check_in_date
    CheckOutDate       time.Time      // bookings.check_out_date
    NumGuests          int            // bookings.num_guests
    TotalPriceCents    int64          // bookings.total_price_cents
    Currency           string         // bookings.currency
    Status             BookingStatus  // bookings.status
    CheckedInAt        *time.Time     // bookings.checked_in_at (nullable)
    CancelledAt        *time.Time     // bookings.cancelled_at (nullable)
    CancellationReason *string        // bookings.cancellation_reason (nullable)
    CreatedAt          time.Time      // bookings.created_at
    UpdatedAt          time.Time      // bookings.updated_at
}

// TransitionLog is one append-only audit record of a booking state change.
// The log is never pruned; together the rows form the compliance audit
// trail for every booking.
type TransitionLog struct {
    ID         string            // booking_transitions.id
    BookingID  string            // booking_transitions.booking_id
    FromStatus BookingStatus     // booking_transitions.from_status
    ToStatus   BookingStatus     // booking_transitions.to_status
    ActorID    string            // booking_transitions.actor_id
    Metadata   map[string]string // booking_transitions.metadata (JSON)
    CreatedAt  time.Time         // booking_transitions.created_at
}
