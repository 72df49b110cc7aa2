package model

import (
	"time"

	"gorm.io/gorm"
)

// Session is a live login. UserID is the doctor id for doctor sessions
// and 0 for the admin.
type Session struct {
	gorm.Model
	UserID       uint      `gorm:"index" json:"user_id"`
	RoleID       uint32    `gorm:"not null" json:"role_id"`
	SessionToken string    `gorm:"type:varchar(512);uniqueIndex;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"index" json:"expires_at"`
	ClientIP     string    `gorm:"type:varchar(45)" json:"client_ip"`
	Browser      string    `gorm:"type:varchar(512)" json:"browser"`
}

// PurgeExpiredSessions soft deletes every session whose expiry is before now.
func PurgeExpiredSessions(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Where("expires_at < ?", now).Delete(&Session{})
	return res.RowsAffected, res.Error
}
