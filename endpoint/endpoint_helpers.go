package endpoint

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/ariebrainware/doctor-appointment/booking"
	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	validate = validator.New()

	errMissingFields  = errors.New("missing required fields")
	errInvalidEmail   = errors.New("invalid email")
	errShortPassword  = errors.New("password too short")
	errProvidersUnset = errors.New("providers not configured")
)

const (
	msgAllFieldsRequired = "All fields are required"
	msgEmailNotValid     = "Email is not valid"
	msgDatabaseError     = "Database error"
)

type clientInfo struct {
	IP    string
	Agent string
}

func clientInfoFrom(c *gin.Context) clientInfo {
	return clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
}

func isEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func getProvidersOrRespond(c *gin.Context) (*middleware.Providers, bool) {
	p := middleware.GetProviders(c)
	if p == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Service not available", Err: errProvidersUnset})
		return nil, false
	}
	return p, true
}

func principalOrRespond(c *gin.Context) (middleware.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Not Authorized Login Again", Err: middleware.ErrMissingToken})
		return middleware.Principal{}, false
	}
	return p, true
}

func getIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid id", Err: fmt.Errorf("invalid %s %q", name, c.Param(name))})
		return 0, false
	}
	return uint(id), true
}

// respondBookingError maps booking errors to responses. notOwnerMsg is the
// message used when the caller does not own the appointment.
func respondBookingError(c *gin.Context, err error, notOwnerMsg string) {
	params := util.APIErrorParams{Err: err}
	switch {
	case errors.Is(err, booking.ErrMissingSlot):
		params.Msg = msgAllFieldsRequired
		util.CallUserError(c, params)
	case errors.Is(err, booking.ErrDoctorNotFound):
		params.Msg = "Doctor not found"
		util.CallErrorNotFound(c, params)
	case errors.Is(err, booking.ErrUserNotFound):
		params.Msg = "User not found"
		util.CallErrorNotFound(c, params)
	case errors.Is(err, booking.ErrAppointmentNotFound):
		params.Msg = "Appointment not found"
		util.CallErrorNotFound(c, params)
	case errors.Is(err, booking.ErrDoctorUnavailable):
		params.Msg = "Doctor is not available"
		util.CallUserError(c, params)
	case errors.Is(err, booking.ErrAppointmentCancelled):
		params.Msg = "Appointment is cancelled"
		util.CallUserError(c, params)
	case errors.Is(err, booking.ErrSlotAlreadyBooked):
		params.Msg = "Slot is already booked"
		util.CallConflict(c, params)
	case errors.Is(err, booking.ErrLedgerContention):
		params.Msg = "Slot is busy, please try again"
		util.CallConflict(c, params)
	case errors.Is(err, booking.ErrNotOwner):
		params.Msg = notOwnerMsg
		util.CallForbidden(c, params)
	default:
		params.Msg = "Something went wrong"
		util.CallServerError(c, params)
	}
}

// notify runs a best-effort notification in the background.
func notify(p *middleware.Providers, send func(util.Mailer, *model.Appointment), appt *model.Appointment) {
	if p.Mailer == nil {
		return
	}
	copied := *appt
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("notification panicked: %v", r)
			}
		}()
		send(p.Mailer, &copied)
	}()
}

func invalidateDoctorList(p *middleware.Providers) {
	if p != nil && p.Doctors != nil {
		p.Doctors.Invalidate()
	}
}
