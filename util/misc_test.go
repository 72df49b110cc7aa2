package util

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewCloudinaryUploader_MissingCredentials(t *testing.T) {
	_, err := NewCloudinaryUploader("", "key", "secret")
	assert.ErrorIs(t, err, ErrImageHostDisabled)
}

func TestNewCloudinaryUploader_Configured(t *testing.T) {
	u, err := NewCloudinaryUploader("demo", "key", "secret")
	assert.NoError(t, err)
	assert.NotNil(t, u)
}

func TestDisabledUploader(t *testing.T) {
	_, err := DisabledUploader{}.Upload(context.Background(), "file.png", "doctors")
	assert.ErrorIs(t, err, ErrImageHostDisabled)
}

func TestDoctorListCache(t *testing.T) {
	c := NewDoctorListCache(time.Minute)
	_, ok := c.Get()
	assert.False(t, ok)

	assert.True(t, c.Set([]model.DoctorListing{{ID: 1, Name: "Dr. A"}}, c.Generation()))
	list, ok := c.Get()
	assert.True(t, ok)
	assert.Len(t, list, 1)

	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestDoctorListCache_DropsListLoadedBeforeInvalidate(t *testing.T) {
	c := NewDoctorListCache(time.Minute)

	gen := c.Generation()
	// A booking lands while the list is being read from the database.
	c.Invalidate()
	assert.False(t, c.Set([]model.DoctorListing{{ID: 1, Name: "stale"}}, gen))
	_, ok := c.Get()
	assert.False(t, ok)

	assert.True(t, c.Set([]model.DoctorListing{{ID: 1, Name: "fresh"}}, c.Generation()))
	list, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "fresh", list[0].Name)
}

func TestSessionJanitor(t *testing.T) {
	dsn := fmt.Sprintf("file:testdb_janitor_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Session{}))

	assert.NoError(t, db.Create(&model.Session{UserID: 1, RoleID: model.RolePatient, SessionToken: "old", ExpiresAt: time.Now().Add(-time.Minute)}).Error)
	assert.NoError(t, db.Create(&model.Session{UserID: 1, RoleID: model.RolePatient, SessionToken: "new", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	purgeExpiredSessions(db)

	var count int64
	assert.NoError(t, db.Model(&model.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	c, err := StartSessionJanitor(db, "")
	assert.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	c.Stop()

	_, err = StartSessionJanitor(db, "not a schedule")
	assert.Error(t, err)
}
