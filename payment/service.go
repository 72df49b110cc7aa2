package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ariebrainware/doctor-appointment/model"
	"gorm.io/gorm"
)

var (
	ErrAppointmentUnavailable = errors.New("appointment not found or already cancelled")
	ErrNotOwner               = errors.New("appointment belongs to another account")
	ErrAlreadyPaid            = errors.New("appointment is already paid")
	ErrPaymentFailed          = errors.New("payment failed")
	ErrInvalidReceipt         = errors.New("order receipt does not reference an appointment")
	ErrOrderNotFound          = errors.New("payment order not found")
)

type Service struct {
	db       *gorm.DB
	gateway  Gateway
	currency string
}

func NewService(db *gorm.DB, gateway Gateway, currency string) *Service {
	return &Service{db: db, gateway: gateway, currency: currency}
}

// CreateOrder opens a processor order for the patient's appointment and
// remembers the order id on it. The receipt is the appointment id.
func (s *Service) CreateOrder(ctx context.Context, userID, appointmentID uint) (*Order, error) {
	var appt model.Appointment
	err := s.db.WithContext(ctx).First(&appt, appointmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Cancelled {
		return nil, ErrAppointmentUnavailable
	}
	if appt.UserID != userID {
		return nil, ErrNotOwner
	}
	if appt.Payment {
		return nil, ErrAlreadyPaid
	}

	order, err := s.gateway.CreateOrder(ctx, ToMinorUnits(appt.Amount), s.currency, strconv.FormatUint(uint64(appt.ID), 10))
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&appt).Update("order_id", order.ID).Error; err != nil {
		return nil, fmt.Errorf("store order id: %w", err)
	}
	return order, nil
}

// Verify fetches the order and, when it is paid, flags the appointment
// named by its receipt as paid. The order must be the one last opened for
// that appointment and the appointment must not be cancelled.
func (s *Service) Verify(ctx context.Context, userID uint, orderID string) (*model.Appointment, error) {
	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order.Status != StatusPaid {
		return nil, ErrPaymentFailed
	}

	id, err := strconv.ParseUint(order.Receipt, 10, 64)
	if err != nil {
		return nil, ErrInvalidReceipt
	}

	var appt model.Appointment
	err = s.db.WithContext(ctx).First(&appt, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.UserID != userID {
		return nil, ErrNotOwner
	}
	if appt.Cancelled {
		return nil, ErrAppointmentUnavailable
	}
	if appt.OrderID != order.ID {
		return nil, ErrInvalidReceipt
	}

	if !appt.Payment {
		if err := s.db.WithContext(ctx).Model(&appt).Update("payment", true).Error; err != nil {
			return nil, fmt.Errorf("mark appointment paid: %w", err)
		}
		appt.Payment = true
	}
	return &appt, nil
}
