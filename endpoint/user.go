package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" example:"Jane Doe"`
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"secret123"`
}

type UserLoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// RegisterUser godoc
// @Summary      Register a patient
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} util.APIResponse{data=TokenResponse}
// @Failure      400 {object} util.APIResponse
// @Failure      409 {object} util.APIResponse "Email already exists"
// @Router       /user/register [post]
func RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	req.Name = util.NormalizeName(req.Name)
	if req.Name == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}
	creds := LoginRequest{Email: req.Email, Password: req.Password}
	if !validateCredentialsOrRespond(c, &creds, minPatientPassword) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var count int64
	if err := db.Model(&model.User{}).Where("email = ?", creds.Email).Count(&count).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if count > 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Email already exists", Err: gorm.ErrDuplicatedKey})
		return
	}

	hashed, err := util.HashPassword(creds.Password)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}
	user := model.User{Name: req.Name, Email: creds.Email, Password: hashed}
	if err := db.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			util.CallConflict(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create user", Err: err})
		return
	}

	token, ok := startSessionOrRespond(c, db, user.ID, model.RolePatient)
	if !ok {
		return
	}
	ci := clientInfoFrom(c)
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		SubjectID: fmt.Sprintf("%d", user.ID),
		Role:      model.RoleName(model.RolePatient),
		Email:     user.Email,
		IP:        ci.IP,
		UserAgent: ci.Agent,
		Message:   "Patient registered",
	})
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Registration successful", Data: TokenResponse{Token: token}})
}

// LoginUser godoc
// @Summary      Patient login
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} util.APIResponse{data=UserLoginResponse}
// @Failure      400 {object} util.APIResponse
// @Router       /user/login [post]
func LoginUser(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if !validateCredentialsOrRespond(c, &req, minPatientPassword) {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfoFrom(c)
	var user model.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.LogLoginFailure(model.RolePatient, req.Email, ci.IP, ci.Agent, "user not found")
			util.CallUserError(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if !util.VerifyPassword(user.Password, req.Password) {
		util.LogLoginFailure(model.RolePatient, req.Email, ci.IP, ci.Agent, "wrong password")
		util.CallUserError(c, util.APIErrorParams{Msg: "Password is incorrect", Err: errors.New("password mismatch")})
		return
	}

	token, ok := startSessionOrRespond(c, db, user.ID, model.RolePatient)
	if !ok {
		return
	}
	util.LogLoginSuccess(user.ID, model.RolePatient, user.Email, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Login successful", Data: UserLoginResponse{Token: token, User: user}})
}

// GetUserProfile godoc
// @Summary      Get own profile
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.User}
// @Failure      404 {object} util.APIResponse
// @Router       /user/get-profile [get]
func GetUserProfile(c *gin.Context) {
	p, ok := principalOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var user model.User
	if err := db.First(&user, p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile retrieved", Data: user})
}

// UpdateUserProfile godoc
// @Summary      Update own profile
// @Description  Multipart form: name, phone, address (JSON), dob, gender and an optional image.
// @Tags         User
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.User}
// @Failure      400 {object} util.APIResponse
// @Router       /user/update-profile [post]
func UpdateUserProfile(c *gin.Context) {
	p, ok := principalOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	name := util.NormalizeName(c.PostForm("name"))
	phone := strings.TrimSpace(c.PostForm("phone"))
	dob := strings.TrimSpace(c.PostForm("dob"))
	gender := strings.TrimSpace(c.PostForm("gender"))
	rawAddress := strings.TrimSpace(c.PostForm("address"))
	fileHeader, _ := c.FormFile("image")

	if name == "" && phone == "" && dob == "" && gender == "" && rawAddress == "" && fileHeader == nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}

	var user model.User
	if err := db.First(&user, p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if phone != "" {
		updates["phone"] = phone
	}
	if dob != "" {
		updates["dob"] = dob
	}
	if gender != "" {
		updates["gender"] = gender
	}
	if rawAddress != "" {
		var addr model.Address
		if err := json.Unmarshal([]byte(rawAddress), &addr); err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Address is not valid JSON", Err: err})
			return
		}
		updates["address"] = datatypes.NewJSONType(addr)
	}
	if fileHeader != nil {
		url, ok := uploadImageOrRespond(c, fileHeader, "users")
		if !ok {
			return
		}
		updates["image"] = url
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update profile", Err: err})
		return
	}
	util.ForgetContact(model.RolePatient, user.ID)
	if err := db.First(&user, p.ID).Error; err != nil {
		log.Printf("failed to reload user %d: %v", p.ID, err)
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile Updated", Data: user})
}
