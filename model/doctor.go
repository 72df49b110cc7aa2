package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Doctor carries the profile and the slot ledger of one practitioner.
// SlotsVersion is bumped on every ledger write and is used as the
// compare-and-swap guard for SlotsBooked.
type Doctor struct {
	gorm.Model
	Name         string                      `gorm:"type:varchar(100);not null" json:"name"`
	Email        string                      `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password     string                      `gorm:"type:varchar(255);not null" json:"-"`
	Image        string                      `gorm:"type:varchar(512)" json:"image"`
	Speciality   string                      `gorm:"type:varchar(100)" json:"speciality"`
	Degree       string                      `gorm:"type:varchar(100)" json:"degree"`
	Experience   string                      `gorm:"type:varchar(50)" json:"experience"`
	About        string                      `gorm:"type:text" json:"about"`
	Available    bool                        `gorm:"not null" json:"available"`
	Fees         float64                     `gorm:"not null" json:"fees"`
	Address      datatypes.JSONType[Address] `json:"address"`
	Date         int64                       `json:"date"`
	SlotsBooked  SlotLedger                  `gorm:"type:text" json:"slots_booked"`
	SlotsVersion uint64                      `gorm:"not null;default:0" json:"-"`
}

// DoctorListing is the public view served by the doctor list.
type DoctorListing struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Image       string     `json:"image"`
	Speciality  string     `json:"speciality"`
	Degree      string     `json:"degree"`
	Experience  string     `json:"experience"`
	About       string     `json:"about"`
	Available   bool       `json:"available"`
	Fees        float64    `json:"fees"`
	Address     Address    `json:"address"`
	SlotsBooked SlotLedger `json:"slots_booked"`
}

func (d Doctor) Listing() DoctorListing {
	return DoctorListing{
		ID:          d.ID,
		Name:        d.Name,
		Image:       d.Image,
		Speciality:  d.Speciality,
		Degree:      d.Degree,
		Experience:  d.Experience,
		About:       d.About,
		Available:   d.Available,
		Fees:        d.Fees,
		Address:     d.Address.Data(),
		SlotsBooked: d.SlotsBooked.Clone(),
	}
}
