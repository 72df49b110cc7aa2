package util

import (
	"fmt"
	"log"

	"github.com/ariebrainware/doctor-appointment/model"
	"gopkg.in/gomail.v2"
)

// Mailer delivers an HTML email.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends through an SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns nil when host or user is empty so callers can treat
// a missing SMTP setup as "notifications off".
func NewSMTPMailer(host string, port int, user, pass string) *SMTPMailer {
	if host == "" || user == "" {
		return nil
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass), from: user}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

func deliver(m Mailer, to, subject, body string) {
	if m == nil || to == "" {
		return
	}
	if err := m.Send(to, subject, body); err != nil {
		log.Printf("failed to send %q to %s: %v", subject, to, err)
	}
}

// NotifyAppointmentBooked mails the patient and the doctor. Failures are
// logged and never surface to the caller.
func NotifyAppointmentBooked(m Mailer, appt *model.Appointment) {
	user := appt.UserData.Data()
	doc := appt.DocData.Data()

	deliver(m, user.Email, "Appointment confirmed",
		fmt.Sprintf(`<p>Hi %s,</p><p>Your appointment with %s on %s at %s is booked. Fee: %.2f.</p>`,
			user.Name, doc.Name, appt.SlotDate, appt.SlotTime, appt.Amount))
	deliver(m, doc.Email, "New appointment",
		fmt.Sprintf(`<p>Hi %s,</p><p>%s booked %s at %s.</p>`,
			doc.Name, user.Name, appt.SlotDate, appt.SlotTime))
}

// NotifyAppointmentCancelled mails both parties about a cancellation.
func NotifyAppointmentCancelled(m Mailer, appt *model.Appointment) {
	user := appt.UserData.Data()
	doc := appt.DocData.Data()
	body := fmt.Sprintf(`<p>The appointment of %s with %s on %s at %s has been cancelled.</p>`,
		user.Name, doc.Name, appt.SlotDate, appt.SlotTime)

	deliver(m, user.Email, "Appointment cancelled", body)
	deliver(m, doc.Email, "Appointment cancelled", body)
}
