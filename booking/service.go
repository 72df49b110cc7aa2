// Package booking owns the slot ledger and the appointment lifecycle.
//
// Every ledger write goes through a per-doctor lock and an optimistic
// compare-and-swap on doctors.slots_version, inside the same transaction
// that inserts or flags the appointment.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultMaxAttempts = 5

// Actor is the authenticated caller an operation runs on behalf of.
type Actor struct {
	ID     uint
	RoleID uint32
}

// BookRequest identifies the slot a patient wants.
type BookRequest struct {
	UserID   uint
	DoctorID uint
	SlotDate string
	SlotTime string
}

type Service struct {
	db          *gorm.DB
	locks       *keyedMutex
	maxAttempts int
	now         func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:          db,
		locks:       newKeyedMutex(),
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// Book reserves SlotDate/SlotTime on the doctor's ledger and records the
// appointment with snapshots of both parties.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	if req.SlotDate == "" || req.SlotTime == "" {
		return nil, ErrMissingSlot
	}

	unlock := s.locks.Lock(req.DoctorID)
	defer unlock()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		appt, err := s.tryBook(ctx, req)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		return appt, err
	}
	return nil, ErrLedgerContention
}

func (s *Service) tryBook(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	var appt model.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doctor, err := loadDoctor(tx, req.DoctorID)
		if err != nil {
			return err
		}
		if !doctor.Available {
			return ErrDoctorUnavailable
		}
		if doctor.SlotsBooked.Contains(req.SlotDate, req.SlotTime) {
			return ErrSlotAlreadyBooked
		}

		var user model.User
		if err := tx.First(&user, req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		ledger := doctor.SlotsBooked.Clone()
		ledger.Add(req.SlotDate, req.SlotTime)
		if err := swapLedger(tx, doctor.ID, doctor.SlotsVersion, ledger); err != nil {
			return err
		}

		appt = model.Appointment{
			UserID:   user.ID,
			DoctorID: doctor.ID,
			SlotDate: req.SlotDate,
			SlotTime: req.SlotTime,
			UserData: datatypes.NewJSONType(model.NewUserSnapshot(user)),
			DocData:  datatypes.NewJSONType(model.NewDoctorSnapshot(*doctor)),
			Amount:   doctor.Fees,
			Date:     s.now().UnixMilli(),
		}
		if err := tx.Create(&appt).Error; err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Cancel flags the appointment cancelled and frees its slot. Cancelling
// twice succeeds; the second call leaves the ledger alone.
func (s *Service) Cancel(ctx context.Context, actor Actor, appointmentID uint) (*model.Appointment, error) {
	appt, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, appt) {
		return nil, ErrNotOwner
	}
	if appt.Cancelled {
		return appt, nil
	}

	unlock := s.locks.Lock(appt.DoctorID)
	defer unlock()

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.tryCancel(ctx, appt)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		appt.Cancelled = true
		return appt, nil
	}
	return nil, ErrLedgerContention
}

func (s *Service) tryCancel(ctx context.Context, appt *model.Appointment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Appointment{}).
			Where("id = ? AND cancelled = ?", appt.ID, false).
			Update("cancelled", true)
		if res.Error != nil {
			return fmt.Errorf("flag appointment cancelled: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// cancelled concurrently; that call already freed the slot
			return nil
		}

		doctor, err := loadDoctor(tx, appt.DoctorID)
		if errors.Is(err, ErrDoctorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		ledger := doctor.SlotsBooked.Clone()
		if !ledger.Remove(appt.SlotDate, appt.SlotTime) {
			return nil
		}
		return swapLedger(tx, doctor.ID, doctor.SlotsVersion, ledger)
	})
}

// Complete marks the doctor's own appointment as attended.
func (s *Service) Complete(ctx context.Context, actor Actor, appointmentID uint) (*model.Appointment, error) {
	appt, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.RoleID != model.RoleDoctor || appt.DoctorID != actor.ID {
		return nil, ErrNotOwner
	}
	if appt.Cancelled {
		return nil, ErrAppointmentCancelled
	}
	if appt.IsCompleted {
		return appt, nil
	}

	if err := s.db.WithContext(ctx).Model(appt).Update("is_completed", true).Error; err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	appt.IsCompleted = true
	return appt, nil
}

func (s *Service) loadAppointment(ctx context.Context, id uint) (*model.Appointment, error) {
	var appt model.Appointment
	if err := s.db.WithContext(ctx).First(&appt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return &appt, nil
}

func loadDoctor(tx *gorm.DB, id uint) (*model.Doctor, error) {
	var doctor model.Doctor
	if err := tx.First(&doctor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return &doctor, nil
}

// swapLedger writes ledger only if the stored version still equals version.
func swapLedger(tx *gorm.DB, doctorID uint, version uint64, ledger model.SlotLedger) error {
	res := tx.Model(&model.Doctor{}).
		Where("id = ? AND slots_version = ?", doctorID, version).
		Updates(map[string]interface{}{
			"slots_booked":  ledger,
			"slots_version": gorm.Expr("slots_version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("update slot ledger: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

func canManage(actor Actor, appt *model.Appointment) bool {
	switch actor.RoleID {
	case model.RoleAdmin:
		return true
	case model.RoleDoctor:
		return appt.DoctorID == actor.ID
	case model.RolePatient:
		return appt.UserID == actor.ID
	}
	return false
}
