package util

import (
	"errors"
	"testing"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return m.err
}

func sampleAppointment() *model.Appointment {
	return &model.Appointment{
		SlotDate: "2024-01-01",
		SlotTime: "10:00",
		Amount:   50,
		UserData: datatypes.NewJSONType(model.UserSnapshot{Name: "Pat", Email: "pat@example.com"}),
		DocData:  datatypes.NewJSONType(model.DoctorSnapshot{Name: "Dr. Doc", Email: "doc@example.com"}),
	}
}

func TestNewSMTPMailer_Unconfigured(t *testing.T) {
	assert.Nil(t, NewSMTPMailer("", 587, "user", "pass"))
	assert.Nil(t, NewSMTPMailer("smtp.example.com", 587, "", "pass"))
	assert.NotNil(t, NewSMTPMailer("smtp.example.com", 587, "user@example.com", "pass"))
}

func TestNotifyAppointmentBooked(t *testing.T) {
	m := &recordingMailer{}
	NotifyAppointmentBooked(m, sampleAppointment())

	assert.Len(t, m.sent, 2)
	assert.Equal(t, "pat@example.com", m.sent[0].to)
	assert.Contains(t, m.sent[0].body, "Dr. Doc")
	assert.Contains(t, m.sent[0].body, "2024-01-01")
	assert.Equal(t, "doc@example.com", m.sent[1].to)
}

func TestNotifyAppointmentCancelled_ErrorsAreSwallowed(t *testing.T) {
	m := &recordingMailer{err: errors.New("smtp down")}
	NotifyAppointmentCancelled(m, sampleAppointment())
	assert.Len(t, m.sent, 2)
	assert.Equal(t, "Appointment cancelled", m.sent[0].subject)
}

func TestNotify_NilMailer(t *testing.T) {
	NotifyAppointmentBooked(nil, sampleAppointment())
	NotifyAppointmentCancelled(nil, sampleAppointment())
}
