package endpoint

import (
	"errors"
	"fmt"

	"github.com/ariebrainware/doctor-appointment/booking"
	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
)

type BookAppointmentRequest struct {
	DocID    uint   `json:"docId" example:"3"`
	SlotDate string `json:"slotDate" example:"20_10_2026"`
	SlotTime string `json:"slotTime" example:"10:30 AM"`
}

type AppointmentIDRequest struct {
	AppointmentID uint `json:"appointmentId" example:"12"`
}

const msgCancelNotAllowed = "You are not authorized to cancel this appointment"

func getBookingOrRespond(c *gin.Context) (*booking.Service, *middleware.Providers, bool) {
	p, ok := getProvidersOrRespond(c)
	if !ok {
		return nil, nil, false
	}
	if p.Booking == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Service not available", Err: fmt.Errorf("booking service is nil")})
		return nil, nil, false
	}
	return p.Booking, p, true
}

func bindAppointmentIDOrRespond(c *gin.Context) (uint, bool) {
	var req AppointmentIDRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return 0, false
	}
	if req.AppointmentID == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return 0, false
	}
	return req.AppointmentID, true
}

// BookAppointment godoc
// @Summary      Book an appointment
// @Description  Reserves a slot on the doctor's ledger. A slot already taken yields 409.
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BookAppointmentRequest true "Slot to book"
// @Success      201 {object} util.APIResponse{data=model.Appointment}
// @Failure      400 {object} util.APIResponse "Doctor is not available"
// @Failure      404 {object} util.APIResponse "Doctor not found"
// @Failure      409 {object} util.APIResponse "Slot is already booked"
// @Router       /user/book-appointment [post]
func BookAppointment(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if req.DocID == 0 || req.SlotDate == "" || req.SlotTime == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}
	svc, p, ok := getBookingOrRespond(c)
	if !ok {
		return
	}

	appt, err := svc.Book(c.Request.Context(), booking.BookRequest{
		UserID:   principal.ID,
		DoctorID: req.DocID,
		SlotDate: req.SlotDate,
		SlotTime: req.SlotTime,
	})
	if err != nil {
		respondBookingError(c, err, msgCancelNotAllowed)
		return
	}

	invalidateDoctorList(p)
	util.LogAppointmentEvent(util.EventAppointmentBooked, principal.ID, principal.RoleID, appt.ID, c.ClientIP(), "Appointment booked")
	notify(p, util.NotifyAppointmentBooked, appt)
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Appointment Booked Successfully", Data: appt})
}

// ListUserAppointments godoc
// @Summary      List own appointments
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Appointment}
// @Router       /user/appointments [get]
func ListUserAppointments(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	listAppointments(c, "user_id = ?", principal.ID)
}

// listAppointments responds with the matching appointments, newest first.
// An empty query lists every appointment.
func listAppointments(c *gin.Context, query string, args ...interface{}) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	q := db.Model(&model.Appointment{})
	if query != "" {
		q = q.Where(query, args...)
	}
	var appointments []model.Appointment
	if err := q.Order("date DESC").Order("id DESC").Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: appointments})
}

// cancelAppointment is shared by the patient, doctor and admin cancel routes.
// Ownership is enforced by the booking service from the caller's role.
func cancelAppointment(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	id, ok := bindAppointmentIDOrRespond(c)
	if !ok {
		return
	}
	svc, p, ok := getBookingOrRespond(c)
	if !ok {
		return
	}

	appt, err := svc.Cancel(c.Request.Context(), principal.Actor(), id)
	if err != nil {
		if errors.Is(err, booking.ErrNotOwner) {
			util.LogUnauthorizedAccess(fmt.Sprintf("%d", principal.ID), c.ClientIP(), c.FullPath(), "cancel of foreign appointment")
		}
		respondBookingError(c, err, msgCancelNotAllowed)
		return
	}

	invalidateDoctorList(p)
	util.LogAppointmentEvent(util.EventAppointmentCancelled, principal.ID, principal.RoleID, appt.ID, c.ClientIP(), "Appointment cancelled")
	notify(p, util.NotifyAppointmentCancelled, appt)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment cancelled successfully", Data: appt})
}

// CancelUserAppointment godoc
// @Summary      Cancel own appointment
// @Tags         User
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AppointmentIDRequest true "Appointment"
// @Success      200 {object} util.APIResponse{data=model.Appointment}
// @Failure      403 {object} util.APIResponse "You are not authorized to cancel this appointment"
// @Failure      404 {object} util.APIResponse
// @Router       /user/cancel-appointment [post]
func CancelUserAppointment(c *gin.Context) {
	cancelAppointment(c)
}
