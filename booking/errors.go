package booking

import "errors"

var (
	ErrMissingSlot          = errors.New("slot date and time are required")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrDoctorUnavailable    = errors.New("doctor is not available")
	ErrSlotAlreadyBooked    = errors.New("slot is already booked")
	ErrUserNotFound         = errors.New("user not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrNotOwner             = errors.New("appointment belongs to another account")
	ErrAppointmentCancelled = errors.New("appointment is cancelled")
	ErrLedgerContention     = errors.New("slot ledger kept changing, giving up")

	errVersionConflict = errors.New("slot ledger version changed")
)
