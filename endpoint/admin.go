package endpoint

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariebrainware/doctor-appointment/config"
	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminSubjectID is the session subject used for the configured admin account.
const AdminSubjectID uint = 0

type ChangeAvailabilityRequest struct {
	DocID uint `json:"docId" example:"3"`
}

type AdminDashboard struct {
	Doctors            int64               `json:"doctors"`
	Appointments       int64               `json:"appointments"`
	Patients           int64               `json:"patients"`
	LatestAppointments []model.Appointment `json:"latest_appointments"`
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// AdminLogin godoc
// @Summary      Admin login
// @Description  Authenticates against the ADMIN_EMAIL and ADMIN_PASSWORD configuration.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} util.APIResponse{data=TokenResponse}
// @Failure      400 {object} util.APIResponse "Invalid credentials"
// @Router       /admin/login [post]
func AdminLogin(c *gin.Context) {
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

	cfg := config.LoadConfig()
	ci := clientInfoFrom(c)
	adminEmail := util.NormalizeEmail(cfg.AdminEmail)
	if adminEmail == "" || cfg.AdminPassword == "" ||
		!secureEqual(req.Email, adminEmail) || !secureEqual(req.Password, cfg.AdminPassword) {
		util.LogLoginFailure(model.RoleAdmin, req.Email, ci.IP, ci.Agent, "invalid admin credentials")
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid credentials", Err: errors.New("admin credentials mismatch")})
		return
	}

	token, ok := startSessionOrRespond(c, db, AdminSubjectID, model.RoleAdmin)
	if !ok {
		return
	}
	util.LogLoginSuccess(AdminSubjectID, model.RoleAdmin, req.Email, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Login successful", Data: TokenResponse{Token: token}})
}

// AddDoctor godoc
// @Summary      Add a doctor
// @Description  Multipart form: name, email, password, speciality, degree, experience, about, fees, address (JSON) and image.
// @Tags         Admin
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} util.APIResponse{data=model.Doctor}
// @Failure      400 {object} util.APIResponse
// @Failure      409 {object} util.APIResponse "Email already exists"
// @Router       /admin/add-doctor [post]
func AddDoctor(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}

	name := util.NormalizeName(c.PostForm("name"))
	email := util.NormalizeEmail(c.PostForm("email"))
	password := c.PostForm("password")
	speciality := strings.TrimSpace(c.PostForm("speciality"))
	degree := strings.TrimSpace(c.PostForm("degree"))
	experience := strings.TrimSpace(c.PostForm("experience"))
	about := strings.TrimSpace(c.PostForm("about"))
	rawFees := strings.TrimSpace(c.PostForm("fees"))
	rawAddress := strings.TrimSpace(c.PostForm("address"))

	if name == "" || email == "" || password == "" || speciality == "" || degree == "" ||
		experience == "" || about == "" || rawFees == "" || rawAddress == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}
	if !isEmail(email) {
		util.CallUserError(c, util.APIErrorParams{Msg: msgEmailNotValid, Err: errInvalidEmail})
		return
	}
	if len(password) < minDoctorPassword {
		util.CallUserError(c, util.APIErrorParams{Msg: passwordTooShortMsg(minDoctorPassword), Err: errShortPassword})
		return
	}
	fees, err := strconv.ParseFloat(rawFees, 64)
	if err != nil || fees < 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "Fees must be a non-negative number", Err: fmt.Errorf("fees %q", rawFees)})
		return
	}
	var addr model.Address
	if err := json.Unmarshal([]byte(rawAddress), &addr); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Address is not valid JSON", Err: err})
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Doctor image is required", Err: err})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var count int64
	if err := db.Model(&model.Doctor{}).Where("email = ?", email).Count(&count).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if count > 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Email already exists", Err: gorm.ErrDuplicatedKey})
		return
	}

	imageURL, ok := uploadImageOrRespond(c, fileHeader, "doctors")
	if !ok {
		return
	}
	hashed, err := util.HashPassword(password)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	doc := model.Doctor{
		Name:        name,
		Email:       email,
		Password:    hashed,
		Image:       imageURL,
		Speciality:  speciality,
		Degree:      degree,
		Experience:  experience,
		About:       about,
		Available:   true,
		Fees:        fees,
		Address:     datatypes.NewJSONType(addr),
		Date:        time.Now().UnixMilli(),
		SlotsBooked: model.SlotLedger{},
	}
	if err := db.Create(&doc).Error; err != nil {
		if isDuplicateKey(err) {
			util.CallConflict(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to add doctor", Err: err})
		return
	}

	invalidateDoctorList(middleware.GetProviders(c))
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventDoctorAdded,
		SubjectID: fmt.Sprintf("%d", principal.ID),
		Role:      model.RoleName(principal.RoleID),
		Email:     doc.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "Doctor added",
		Details:   map[string]interface{}{"doctor_id": doc.ID},
	})
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Doctor Added", Data: doc})
}

// AllDoctors godoc
// @Summary      List all doctors
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Doctor}
// @Router       /admin/all-doctors [get]
func AllDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctors []model.Doctor
	if err := db.Order("id ASC").Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// ChangeAvailability godoc
// @Summary      Toggle a doctor's availability
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangeAvailabilityRequest true "Doctor"
// @Success      200 {object} util.APIResponse{data=model.Doctor}
// @Failure      404 {object} util.APIResponse
// @Router       /admin/change-availability [post]
func ChangeAvailability(c *gin.Context) {
	var req ChangeAvailabilityRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if req.DocID == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doc, ok := loadDoctorOrRespond(c, db, req.DocID)
	if !ok {
		return
	}
	next := !doc.Available
	if err := db.Model(doc).Update("available", next).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to change availability", Err: err})
		return
	}
	doc.Available = next
	invalidateDoctorList(middleware.GetProviders(c))
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Availability Changed", Data: doc})
}

// AdminAppointments godoc
// @Summary      List every appointment
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Appointment}
// @Router       /admin/appointments [get]
func AdminAppointments(c *gin.Context) {
	listAppointments(c, "")
}

// AdminCancelAppointment godoc
// @Summary      Cancel any appointment
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AppointmentIDRequest true "Appointment"
// @Success      200 {object} util.APIResponse{data=model.Appointment}
// @Failure      404 {object} util.APIResponse
// @Router       /admin/cancel-appointment [post]
func AdminCancelAppointment(c *gin.Context) {
	cancelAppointment(c)
}

// AdminDashboardHandler godoc
// @Summary      Admin dashboard
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=AdminDashboard}
// @Router       /admin/dashboard [get]
func AdminDashboardHandler(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var dash AdminDashboard
	counts := []struct {
		table interface{}
		dst   *int64
	}{
		{&model.Doctor{}, &dash.Doctors},
		{&model.Appointment{}, &dash.Appointments},
		{&model.User{}, &dash.Patients},
	}
	for _, ct := range counts {
		if err := db.Model(ct.table).Count(ct.dst).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
			return
		}
	}
	latest, err := latestAppointments(db, "")
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	dash.LatestAppointments = latest
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dashboard retrieved", Data: dash})
}
