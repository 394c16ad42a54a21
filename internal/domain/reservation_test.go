package domain

import (
	"testing"
	"time"
)

func TestReservation_Validate(t *testing.T) {
	tests := []struct {
		name        string
		reservation *Reservation
		errCount    int
	}{
		{
			name: "valid reservation",
			reservation: &Reservation{
				ID:        "res-1",
				EventID:   "event-1",
				UserID:    "user-1",
				Status:    ReservationStatusConfirmed,
				CreatedAt: time.Now(),
			},
			errCount: 0,
		},
		{
			name: "missing event id",
			reservation: &Reservation{
				ID:     "res-1",
				UserID: "user-1",
				Status: ReservationStatusConfirmed,
			},
			errCount: 1,
		},
		{
			name: "missing user id",
			reservation: &Reservation{
				ID:      "res-1",
				EventID: "event-1",
				Status:  ReservationStatusConfirmed,
			},
			errCount: 1,
		},
		{
			name:        "both missing",
			reservation: &Reservation{ID: "res-1"},
			errCount:    2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.reservation.Validate()
			if len(errs) != tc.errCount {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, tc.errCount)
			}
		})
	}
}

func TestReservationStatus_Active(t *testing.T) {
	tests := []struct {
		status ReservationStatus
		want   bool
	}{
		{ReservationStatusPending, true},
		{ReservationStatusConfirmed, true},
		{ReservationStatusFailed, false},
		{ReservationStatus("unknown"), false},
	}

	for _, tc := range tests {
		if got := tc.status.Active(); got != tc.want {
			t.Fatalf("status %q: Active()=%v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestIdempotencyStatusValid(t *testing.T) {
	tests := []struct {
		name   string
		status IdempotencyStatus
		want   bool
	}{
		{name: "processing", status: IdempotencyStatusProcessing, want: true},
		{name: "done", status: IdempotencyStatusDone, want: true},
		{name: "failed", status: IdempotencyStatusFailed, want: true},
		{name: "invalid", status: IdempotencyStatus("broken"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Valid(); got != tc.want {
				t.Fatalf("status %q valid=%v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestIsBookingRejection(t *testing.T) {
	rejections := []error{ErrInvalidRequest, ErrAlreadyReserved, ErrEventNotFound, ErrSoldOut, ErrPaymentDeclined}
	for _, err := range rejections {
		if !IsBookingRejection(err) {
			t.Fatalf("expected %v to be a booking rejection", err)
		}
	}

	faults := []error{ErrPaymentUnavailable, ErrInventoryUnavailable, ErrOutboxPublish}
	for _, err := range faults {
		if IsBookingRejection(err) {
			t.Fatalf("expected %v to be a fault, not a rejection", err)
		}
	}
}
