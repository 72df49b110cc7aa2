package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ariebrainware/doctor-appointment/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess         SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure         SecurityEventType = "LOGIN_FAILURE"
	EventSignupSuccess        SecurityEventType = "SIGNUP_SUCCESS"
	EventLogout               SecurityEventType = "LOGOUT"
	EventUnauthorizedAccess   SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded    SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity   SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall         SecurityEventType = "ENDPOINT_CALL"
	EventAppointmentBooked    SecurityEventType = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled SecurityEventType = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted SecurityEventType = "APPOINTMENT_COMPLETED"
	EventPaymentOrderCreated  SecurityEventType = "PAYMENT_ORDER_CREATED"
	EventPaymentVerified      SecurityEventType = "PAYMENT_VERIFIED"
	EventPaymentFailed        SecurityEventType = "PAYMENT_FAILED"
	EventDoctorAdded          SecurityEventType = "DOCTOR_ADDED"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	SubjectID string
	Role      string
	Email     string
	IP        string
	UserAgent string
	RequestID string
	Message   string
	Details   map[string]interface{}
}

var securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
var securityDB *gorm.DB

// SetSecurityLoggerDB sets a gorm DB instance used by the security logger.
// Call this during application startup after DB initialization.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityDB = db
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

func formatLocation(city, country string) string {
	switch {
	case city != "" && country != "":
		return fmt.Sprintf("%s/%s", city, country)
	case country != "":
		return country
	default:
		return city
	}
}

// LogSecurityEvent writes the event to the security log and, when a DB was
// registered, persists it. Persistence failures are only logged.
func LogSecurityEvent(event SecurityEvent) {
	msg := fmt.Sprintf("Event=%s Subject=%s Role=%s Email=%s IP=%s RequestID=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.SubjectID),
		sanitizeLogValue(event.Role),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.RequestID),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)
	if len(event.Details) > 0 {
		// details go to the DB only
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}
	securityLogger.Println(msg)

	if securityDB == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}

	entry := model.SecurityLog{
		EventType: string(event.EventType),
		SubjectID: sanitizeLogValue(event.SubjectID),
		Role:      sanitizeLogValue(event.Role),
		Email:     sanitizeLogValue(event.Email),
		IP:        sanitizeLogValue(event.IP),
		RequestID: sanitizeLogValue(event.RequestID),
		Location:  sanitizeLogValue(formatLocation(GetIPLocation(event.IP))),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := securityDB.Create(&entry).Error; err != nil {
		securityLogger.Printf("Failed to persist security event: %v", err)
	}
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(subjectID uint, roleID uint32, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		SubjectID: fmt.Sprintf("%d", subjectID),
		Role:      model.RoleName(roleID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "Logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(roleID uint32, email, ip, userAgent, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Role:      model.RoleName(roleID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogLogout logs a logout event
func LogLogout(subjectID uint, roleID uint32, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		SubjectID: fmt.Sprintf("%d", subjectID),
		Role:      model.RoleName(roleID),
		IP:        ip,
		UserAgent: userAgent,
		Message:   "Logged out",
	})
}

// LogUnauthorizedAccess logs unauthorized access attempts
func LogUnauthorizedAccess(subjectID string, ip, resource, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		SubjectID: subjectID,
		IP:        ip,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(ip, endpoint string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}

// LogAppointmentEvent records a booking lifecycle or payment event.
func LogAppointmentEvent(eventType SecurityEventType, subjectID uint, roleID uint32, appointmentID uint, ip, message string) {
	LogSecurityEvent(SecurityEvent{
		EventType: eventType,
		SubjectID: fmt.Sprintf("%d", subjectID),
		Role:      model.RoleName(roleID),
		IP:        ip,
		Message:   message,
		Details:   map[string]interface{}{"appointment_id": appointmentID},
	})
}

// GetSecurityLoggerForTest returns the current security logger for testing purposes
func GetSecurityLoggerForTest() *log.Logger {
	return securityLogger
}

// SetSecurityLoggerForTest sets a custom logger for testing purposes
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityLogger = logger
}
