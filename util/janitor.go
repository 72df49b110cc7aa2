package util

import (
	"log"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DefaultJanitorSchedule purges expired sessions once an hour.
const DefaultJanitorSchedule = "@hourly"

func purgeExpiredSessions(db *gorm.DB) {
	n, err := model.PurgeExpiredSessions(db, time.Now())
	if err != nil {
		log.Printf("session janitor: %v", err)
		return
	}
	if n > 0 {
		log.Printf("session janitor: purged %d expired sessions", n)
	}
}

// StartSessionJanitor schedules the expired-session purge and starts the
// scheduler. Callers stop it with the returned cron's Stop.
func StartSessionJanitor(db *gorm.DB, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { purgeExpiredSessions(db) }); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("session janitor scheduled: %s", schedule)
	return c, nil
}
