package endpoint

import (
	"errors"
	"fmt"
	"log"

	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const latestAppointmentsLimit = 5

type DoctorLoginResponse struct {
	Token  string       `json:"token"`
	Doctor model.Doctor `json:"doctor"`
}

type DoctorDashboard struct {
	Earnings           float64             `json:"earnings"`
	Appointments       int64               `json:"appointments"`
	Patients           int64               `json:"patients"`
	LatestAppointments []model.Appointment `json:"latest_appointments"`
}

type UpdateDoctorProfileRequest struct {
	Fees      *float64       `json:"fees"`
	Address   *model.Address `json:"address"`
	Available *bool          `json:"available"`
}

func loadDoctorOrRespond(c *gin.Context, db *gorm.DB, id uint) (*model.Doctor, bool) {
	var doc model.Doctor
	if err := db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Doctor not found", Err: err})
			return nil, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return nil, false
	}
	return &doc, true
}

func latestAppointments(db *gorm.DB, query string, args ...interface{}) ([]model.Appointment, error) {
	q := db.Model(&model.Appointment{})
	if query != "" {
		q = q.Where(query, args...)
	}
	var latest []model.Appointment
	err := q.Order("date DESC").Order("id DESC").Limit(latestAppointmentsLimit).Find(&latest).Error
	return latest, err
}

// ListDoctors godoc
// @Summary      List doctors
// @Description  Public doctor directory with each doctor's booked slots. Email and password are never included.
// @Tags         Doctor
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.DoctorListing}
// @Router       /doctor/list [get]
func ListDoctors(c *gin.Context) {
	var cache *util.DoctorListCache
	if p := middleware.GetProviders(c); p != nil {
		cache = p.Doctors
	}
	var gen uint64
	if cache != nil {
		if cached, ok := cache.Get(); ok {
			util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: cached})
			return
		}
		gen = cache.Generation()
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctors []model.Doctor
	if err := db.Order("id ASC").Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	listings := make([]model.DoctorListing, 0, len(doctors))
	for _, d := range doctors {
		listings = append(listings, d.Listing())
	}
	if cache != nil {
		cache.Set(listings, gen)
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: listings})
}

// DoctorLogin godoc
// @Summary      Doctor login
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} util.APIResponse{data=DoctorLoginResponse}
// @Failure      400 {object} util.APIResponse
// @Router       /doctor/login [post]
func DoctorLogin(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if !validateCredentialsOrRespond(c, &req, 1) {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfoFrom(c)
	var doc model.Doctor
	if err := db.Where("email = ?", req.Email).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.LogLoginFailure(model.RoleDoctor, req.Email, ci.IP, ci.Agent, "doctor not found")
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid credentials", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if !util.VerifyPassword(doc.Password, req.Password) {
		util.LogLoginFailure(model.RoleDoctor, req.Email, ci.IP, ci.Agent, "wrong password")
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid credentials", Err: errors.New("password mismatch")})
		return
	}

	token, ok := startSessionOrRespond(c, db, doc.ID, model.RoleDoctor)
	if !ok {
		return
	}
	util.LogLoginSuccess(doc.ID, model.RoleDoctor, doc.Email, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Login successful", Data: DoctorLoginResponse{Token: token, Doctor: doc}})
}

// DoctorAppointments godoc
// @Summary      List the doctor's appointments
// @Tags         Doctor
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Appointment}
// @Router       /doctor/appointments [get]
func DoctorAppointments(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	listAppointments(c, "doc_id = ?", principal.ID)
}

// CompleteAppointment godoc
// @Summary      Mark an appointment completed
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AppointmentIDRequest true "Appointment"
// @Success      200 {object} util.APIResponse{data=model.Appointment}
// @Failure      400 {object} util.APIResponse "Appointment is cancelled"
// @Failure      403 {object} util.APIResponse
// @Router       /doctor/complete-appointment [post]
func CompleteAppointment(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	id, ok := bindAppointmentIDOrRespond(c)
	if !ok {
		return
	}
	svc, _, ok := getBookingOrRespond(c)
	if !ok {
		return
	}

	appt, err := svc.Complete(c.Request.Context(), principal.Actor(), id)
	if err != nil {
		respondBookingError(c, err, "You are not authorized to complete this appointment")
		return
	}
	util.LogAppointmentEvent(util.EventAppointmentCompleted, principal.ID, principal.RoleID, appt.ID, c.ClientIP(), "Appointment completed")
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment Completed", Data: appt})
}

// DoctorCancelAppointment godoc
// @Summary      Cancel one of the doctor's appointments
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AppointmentIDRequest true "Appointment"
// @Success      200 {object} util.APIResponse{data=model.Appointment}
// @Failure      403 {object} util.APIResponse
// @Router       /doctor/cancel-appointment [post]
func DoctorCancelAppointment(c *gin.Context) {
	cancelAppointment(c)
}

// DoctorDashboardHandler godoc
// @Summary      Doctor dashboard
// @Tags         Doctor
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=DoctorDashboard}
// @Router       /doctor/dashboard [get]
func DoctorDashboardHandler(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var dash DoctorDashboard
	own := db.Model(&model.Appointment{}).Where("doc_id = ?", principal.ID)
	if err := own.Session(&gorm.Session{}).Count(&dash.Appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if err := own.Session(&gorm.Session{}).Distinct("user_id").Count(&dash.Patients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	err := own.Session(&gorm.Session{}).
		Where("is_completed = ? OR payment = ?", true, true).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&dash.Earnings).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if dash.LatestAppointments, err = latestAppointments(db, "doc_id = ?", principal.ID); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dashboard retrieved", Data: dash})
}

// DoctorProfile godoc
// @Summary      Doctor's own profile
// @Tags         Doctor
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.Doctor}
// @Router       /doctor/profile [get]
func DoctorProfile(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doc, ok := loadDoctorOrRespond(c, db, principal.ID)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile retrieved", Data: doc})
}

// UpdateDoctorProfile godoc
// @Summary      Update the doctor's fees, address or availability
// @Tags         Doctor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateDoctorProfileRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.Doctor}
// @Failure      400 {object} util.APIResponse
// @Router       /doctor/update-profile [post]
func UpdateDoctorProfile(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	var req UpdateDoctorProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if req.Fees == nil && req.Address == nil && req.Available == nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}
	if req.Fees != nil && *req.Fees < 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Fees must not be negative", Err: fmt.Errorf("fees %v", *req.Fees)})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doc, ok := loadDoctorOrRespond(c, db, principal.ID)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Fees != nil {
		updates["fees"] = *req.Fees
	}
	if req.Address != nil {
		updates["address"] = datatypes.NewJSONType(*req.Address)
	}
	if req.Available != nil {
		updates["available"] = *req.Available
	}
	if err := db.Model(doc).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update profile", Err: err})
		return
	}
	invalidateDoctorList(middleware.GetProviders(c))
	if err := db.First(doc, principal.ID).Error; err != nil {
		log.Printf("failed to reload doctor %d: %v", principal.ID, err)
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile Updated", Data: doc})
}
