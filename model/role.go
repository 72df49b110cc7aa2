package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Role ids are fixed so they can be embedded in session tokens and cache values.
const (
	RoleAdmin   uint32 = 1
	RoleDoctor  uint32 = 2
	RolePatient uint32 = 3
)

type Role struct {
	ID   uint32 `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
}

// RoleName returns the lowercase name used in tokens for a role id.
func RoleName(id uint32) string {
	switch id {
	case RoleAdmin:
		return "admin"
	case RoleDoctor:
		return "doctor"
	case RolePatient:
		return "patient"
	}
	return "unknown"
}

func SeedRoles(db *gorm.DB) error {
	roles := []Role{
		{ID: RoleAdmin, Name: "Admin"},
		{ID: RoleDoctor, Name: "Doctor"},
		{ID: RolePatient, Name: "Patient"},
	}

	for _, role := range roles {
		var existing Role
		err := db.Where("id = ?", role.ID).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	return nil
}
