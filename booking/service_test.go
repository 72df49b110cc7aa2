package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupBookingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_booking_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := model.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func mustCreatePatient(t *testing.T, db *gorm.DB, email string) model.User {
	t.Helper()
	u := model.User{Name: "Patient " + email, Email: email, Password: "hash"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func mustCreateDoctor(t *testing.T, db *gorm.DB, email string, available bool) model.Doctor {
	t.Helper()
	d := model.Doctor{Name: "Dr " + email, Email: email, Password: "hash", Available: available, Fees: 50}
	if err := db.Create(&d).Error; err != nil {
		t.Fatalf("failed to create doctor: %v", err)
	}
	return d
}

func reloadDoctor(t *testing.T, db *gorm.DB, id uint) model.Doctor {
	t.Helper()
	var d model.Doctor
	if err := db.First(&d, id).Error; err != nil {
		t.Fatalf("failed to reload doctor: %v", err)
	}
	return d
}

func TestBook_Success(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	user := mustCreatePatient(t, db, "p@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)

	appt, err := svc.Book(context.Background(), BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "2024-01-01", SlotTime: "10:00"})
	assert.NoError(t, err)
	assert.NotZero(t, appt.ID)
	assert.Equal(t, 50.0, appt.Amount)
	assert.NotZero(t, appt.Date)
	assert.Equal(t, user.Email, appt.UserData.Data().Email)
	assert.Equal(t, doc.Name, appt.DocData.Data().Name)

	stored := reloadDoctor(t, db, doc.ID)
	assert.True(t, stored.SlotsBooked.Contains("2024-01-01", "10:00"))
	assert.Equal(t, uint64(1), stored.SlotsVersion)
}

func TestBook_Errors(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	user := mustCreatePatient(t, db, "p@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	off := mustCreateDoctor(t, db, "off@example.com", false)
	ctx := context.Background()

	_, err := svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "", SlotTime: "10:00"})
	assert.ErrorIs(t, err, ErrMissingSlot)

	_, err = svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: 9999, SlotDate: "d", SlotTime: "t"})
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: off.ID, SlotDate: "d", SlotTime: "t"})
	assert.ErrorIs(t, err, ErrDoctorUnavailable)

	_, err = svc.Book(ctx, BookRequest{UserID: 9999, DoctorID: doc.ID, SlotDate: "d", SlotTime: "t"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.False(t, reloadDoctor(t, db, doc.ID).SlotsBooked.Contains("d", "t"), "failed booking must not touch the ledger")
}

func TestBook_SameSlotTwiceConflicts(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	u1 := mustCreatePatient(t, db, "a@example.com")
	u2 := mustCreatePatient(t, db, "b@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	ctx := context.Background()

	_, err := svc.Book(ctx, BookRequest{UserID: u1.ID, DoctorID: doc.ID, SlotDate: "2024-01-01", SlotTime: "10:00"})
	assert.NoError(t, err)
	_, err = svc.Book(ctx, BookRequest{UserID: u2.ID, DoctorID: doc.ID, SlotDate: "2024-01-01", SlotTime: "10:00"})
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)

	var count int64
	db.Model(&model.Appointment{}).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{"10:00"}, reloadDoctor(t, db, doc.ID).SlotsBooked["2024-01-01"])
}

func TestBook_ConcurrentSameSlotExactlyOneWins(t *testing.T) {
	db := setupBookingTestDB(t)
	// two services share nothing but the database, like two API instances
	services := []*Service{NewService(db), NewService(db)}
	doc := mustCreateDoctor(t, db, "d@example.com", true)

	const workers = 8
	users := make([]model.User, workers)
	for i := range users {
		users[i] = mustCreatePatient(t, db, fmt.Sprintf("p%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = services[i%2].Book(context.Background(), BookRequest{
				UserID: users[i].ID, DoctorID: doc.ID, SlotDate: "2024-01-01", SlotTime: "10:00",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
	}
	assert.Equal(t, 1, wins)

	var count int64
	db.Model(&model.Appointment{}).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{"10:00"}, reloadDoctor(t, db, doc.ID).SlotsBooked["2024-01-01"])
}

func TestSwapLedger_StaleVersion(t *testing.T) {
	db := setupBookingTestDB(t)
	doc := mustCreateDoctor(t, db, "d@example.com", true)

	ledger := model.SlotLedger{"d": {"t"}}
	assert.NoError(t, swapLedger(db, doc.ID, 0, ledger))
	assert.ErrorIs(t, swapLedger(db, doc.ID, 0, model.SlotLedger{}), errVersionConflict)

	stored := reloadDoctor(t, db, doc.ID)
	assert.True(t, stored.SlotsBooked.Contains("d", "t"))
	assert.Equal(t, uint64(1), stored.SlotsVersion)
}

func TestCancel_EndToEnd(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	user := mustCreatePatient(t, db, "p@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	ctx := context.Background()

	appt, err := svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "2024-01-01", SlotTime: "10:00"})
	assert.NoError(t, err)
	assert.True(t, reloadDoctor(t, db, doc.ID).SlotsBooked.Contains("2024-01-01", "10:00"))

	cancelled, err := svc.Cancel(ctx, Actor{ID: user.ID, RoleID: model.RolePatient}, appt.ID)
	assert.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	assert.False(t, reloadDoctor(t, db, doc.ID).SlotsBooked.Contains("2024-01-01", "10:00"))
	var stored model.Appointment
	assert.NoError(t, db.First(&stored, appt.ID).Error)
	assert.True(t, stored.Cancelled)

	// the freed slot can be booked again
	_, err = svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "2024-01-01", SlotTime: "10:00"})
	assert.NoError(t, err)
}

func TestCancel_Twice(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	u1 := mustCreatePatient(t, db, "a@example.com")
	u2 := mustCreatePatient(t, db, "b@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	ctx := context.Background()

	first, err := svc.Book(ctx, BookRequest{UserID: u1.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "t"})
	assert.NoError(t, err)
	_, err = svc.Cancel(ctx, Actor{ID: u1.ID, RoleID: model.RolePatient}, first.ID)
	assert.NoError(t, err)

	// someone else takes the freed slot before the repeat cancellation
	_, err = svc.Book(ctx, BookRequest{UserID: u2.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "t"})
	assert.NoError(t, err)

	again, err := svc.Cancel(ctx, Actor{ID: u1.ID, RoleID: model.RolePatient}, first.ID)
	assert.NoError(t, err)
	assert.True(t, again.Cancelled)
	assert.True(t, reloadDoctor(t, db, doc.ID).SlotsBooked.Contains("d", "t"), "repeat cancel must not free another booking")
}

func TestCancel_NotOwnerLeavesLedger(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	owner := mustCreatePatient(t, db, "owner@example.com")
	other := mustCreatePatient(t, db, "other@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	otherDoc := mustCreateDoctor(t, db, "d2@example.com", true)
	ctx := context.Background()

	appt, err := svc.Book(ctx, BookRequest{UserID: owner.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "t"})
	assert.NoError(t, err)
	before := reloadDoctor(t, db, doc.ID)

	_, err = svc.Cancel(ctx, Actor{ID: other.ID, RoleID: model.RolePatient}, appt.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = svc.Cancel(ctx, Actor{ID: otherDoc.ID, RoleID: model.RoleDoctor}, appt.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	after := reloadDoctor(t, db, doc.ID)
	assert.Equal(t, before.SlotsBooked, after.SlotsBooked)
	assert.Equal(t, before.SlotsVersion, after.SlotsVersion)

	var stored model.Appointment
	assert.NoError(t, db.First(&stored, appt.ID).Error)
	assert.False(t, stored.Cancelled)
}

func TestCancel_DoctorAndAdmin(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	user := mustCreatePatient(t, db, "p@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	ctx := context.Background()

	a1, err := svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "1"})
	assert.NoError(t, err)
	a2, err := svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "2"})
	assert.NoError(t, err)

	_, err = svc.Cancel(ctx, Actor{ID: doc.ID, RoleID: model.RoleDoctor}, a1.ID)
	assert.NoError(t, err)
	_, err = svc.Cancel(ctx, Actor{RoleID: model.RoleAdmin}, a2.ID)
	assert.NoError(t, err)

	assert.Empty(t, reloadDoctor(t, db, doc.ID).SlotsBooked["d"])
}

func TestCancel_NotFound(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)

	_, err := svc.Cancel(context.Background(), Actor{ID: 1, RoleID: model.RolePatient}, 12345)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestComplete(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	user := mustCreatePatient(t, db, "p@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)
	ctx := context.Background()

	appt, err := svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "t"})
	assert.NoError(t, err)

	_, err = svc.Complete(ctx, Actor{ID: user.ID, RoleID: model.RolePatient}, appt.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	done, err := svc.Complete(ctx, Actor{ID: doc.ID, RoleID: model.RoleDoctor}, appt.ID)
	assert.NoError(t, err)
	assert.True(t, done.IsCompleted)

	other, err := svc.Book(ctx, BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "u"})
	assert.NoError(t, err)
	_, err = svc.Cancel(ctx, Actor{ID: user.ID, RoleID: model.RolePatient}, other.ID)
	assert.NoError(t, err)
	_, err = svc.Complete(ctx, Actor{ID: doc.ID, RoleID: model.RoleDoctor}, other.ID)
	assert.ErrorIs(t, err, ErrAppointmentCancelled)
}

func TestBook_SnapshotSurvivesProfileUpdate(t *testing.T) {
	db := setupBookingTestDB(t)
	svc := NewService(db)
	user := mustCreatePatient(t, db, "p@example.com")
	doc := mustCreateDoctor(t, db, "d@example.com", true)

	appt, err := svc.Book(context.Background(), BookRequest{UserID: user.ID, DoctorID: doc.ID, SlotDate: "d", SlotTime: "t"})
	assert.NoError(t, err)

	assert.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Update("name", "Changed").Error)
	assert.NoError(t, db.Model(&model.Doctor{}).Where("id = ?", doc.ID).Update("fees", 500).Error)

	var stored model.Appointment
	assert.NoError(t, db.First(&stored, appt.ID).Error)
	assert.Equal(t, user.Name, stored.UserData.Data().Name)
	assert.Equal(t, 50.0, stored.DocData.Data().Fees)
	assert.Equal(t, 50.0, stored.Amount)
}
