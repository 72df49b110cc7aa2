package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserSnapshot is the copy of a patient profile stored on an appointment.
type UserSnapshot struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Image   string  `json:"image"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
	Gender  string  `json:"gender"`
	DOB     string  `json:"dob"`
}

// DoctorSnapshot is the copy of a doctor profile stored on an appointment.
// The ledger and the password hash are never part of it.
type DoctorSnapshot struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Image      string  `json:"image"`
	Speciality string  `json:"speciality"`
	Degree     string  `json:"degree"`
	Experience string  `json:"experience"`
	About      string  `json:"about"`
	Fees       float64 `json:"fees"`
	Address    Address `json:"address"`
}

func NewUserSnapshot(u User) UserSnapshot {
	return UserSnapshot{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Image:   u.Image,
		Phone:   u.Phone,
		Address: u.Address.Data(),
		Gender:  u.Gender,
		DOB:     u.DOB,
	}
}

func NewDoctorSnapshot(d Doctor) DoctorSnapshot {
	return DoctorSnapshot{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address.Data(),
	}
}

// Appointment is a booking record. Rows are flagged, never deleted.
type Appointment struct {
	gorm.Model
	UserID      uint                               `gorm:"index;not null" json:"user_id"`
	DoctorID    uint                               `gorm:"column:doc_id;index;not null" json:"doc_id"`
	SlotDate    string                             `gorm:"type:varchar(32);not null" json:"slot_date"`
	SlotTime    string                             `gorm:"type:varchar(32);not null" json:"slot_time"`
	UserData    datatypes.JSONType[UserSnapshot]   `json:"user_data"`
	DocData     datatypes.JSONType[DoctorSnapshot] `json:"doc_data"`
	Amount      float64                            `gorm:"not null" json:"amount"`
	Date        int64                              `gorm:"not null" json:"date"`
	Cancelled   bool                               `gorm:"not null;default:false" json:"cancelled"`
	Payment     bool                               `gorm:"not null;default:false" json:"payment"`
	IsCompleted bool                               `gorm:"not null;default:false" json:"is_completed"`
	OrderID     string                             `gorm:"type:varchar(64);index" json:"order_id"`
}
