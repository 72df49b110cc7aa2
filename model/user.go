package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPhone     = "0000000000"
	DefaultNotChosen = "Not Selected"
	DefaultUserImage = "https://res.cloudinary.com/demo/image/upload/avatar.png"
)

// Address is stored as a JSON column on users and doctors.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// User is a patient account.
type User struct {
	gorm.Model
	Name     string                      `gorm:"type:varchar(100);not null" json:"name"`
	Email    string                      `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password string                      `gorm:"type:varchar(255);not null" json:"-"`
	Image    string                      `gorm:"type:varchar(512)" json:"image"`
	Phone    string                      `gorm:"type:varchar(20)" json:"phone"`
	Address  datatypes.JSONType[Address] `json:"address"`
	Gender   string                      `gorm:"type:varchar(20)" json:"gender"`
	DOB      string                      `gorm:"column:dob;type:varchar(20)" json:"dob"`
}

// BeforeCreate fills the profile defaults a new registration starts with.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Image == "" {
		u.Image = DefaultUserImage
	}
	if u.Phone == "" {
		u.Phone = DefaultPhone
	}
	if u.Gender == "" {
		u.Gender = DefaultNotChosen
	}
	if u.DOB == "" {
		u.DOB = DefaultNotChosen
	}
	return nil
}
