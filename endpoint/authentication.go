package endpoint

import (
	"fmt"
	"log"

	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"password123"`
}

type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// validateCredentialsOrRespond applies the login input checks shared by
// patients, doctors and the admin.
func validateCredentialsOrRespond(c *gin.Context, req *LoginRequest, minPassword int) bool {
	req.Email = util.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return false
	}
	if !isEmail(req.Email) {
		util.CallUserError(c, util.APIErrorParams{Msg: msgEmailNotValid, Err: errInvalidEmail})
		return false
	}
	if len(req.Password) < minPassword {
		util.CallUserError(c, util.APIErrorParams{Msg: passwordTooShortMsg(minPassword), Err: errShortPassword})
		return false
	}
	return true
}

const (
	minPatientPassword = 6
	minDoctorPassword  = 8
)

func passwordTooShortMsg(n int) string {
	return fmt.Sprintf("Password must be at least %d characters", n)
}

// startSessionOrRespond issues a token for the subject, records the session
// row and warms the session cache.
func startSessionOrRespond(c *gin.Context, db *gorm.DB, subjectID uint, roleID uint32) (string, bool) {
	token, expires, err := util.GenerateSessionToken(subjectID, roleID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return "", false
	}

	ci := clientInfoFrom(c)
	session := model.Session{
		UserID:       subjectID,
		RoleID:       roleID,
		SessionToken: token,
		ExpiresAt:    expires,
		ClientIP:     ci.IP,
		Browser:      ci.Agent,
	}
	if err := db.Create(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return "", false
	}
	if err := util.CacheSession(c.Request.Context(), token, subjectID, roleID, util.SessionTTL); err != nil {
		log.Printf("failed to cache session: %v", err)
	}
	return token, true
}

// Logout godoc
// @Summary      Logout
// @Description  Revoke the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse "Logout successfully"
// @Failure      401 {object} util.APIResponse "Not authorized"
// @Router       /user/logout [delete]
func Logout(c *gin.Context) {
	p, ok := principalOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if err := db.Where("session_token = ?", p.Token).Delete(&model.Session{}).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to logout", Err: err})
		return
	}
	if err := util.RemoveCachedSession(c.Request.Context(), p.Token, p.ID, p.RoleID); err != nil {
		log.Printf("failed to drop cached session: %v", err)
	}

	ci := clientInfoFrom(c)
	util.LogLogout(p.ID, p.RoleID, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successfully"})
}

type ValidateTokenResponse struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
}

// ValidateToken godoc
// @Summary      Validate session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=ValidateTokenResponse}
// @Failure      401 {object} util.APIResponse
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Not Authorized Login Again", Err: middleware.ErrMissingToken})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Token is valid",
		Data: ValidateTokenResponse{ID: p.ID, Role: model.RoleName(p.RoleID)},
	})
}
