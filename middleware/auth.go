package middleware

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ariebrainware/doctor-appointment/booking"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	UserIDKey    = "user_id"
	RoleIDKey    = "role_id"
)

var (
	ErrMissingToken   = errors.New("session token is missing")
	ErrSessionRevoked = errors.New("session expired or revoked")
	ErrRoleNotAllowed = errors.New("role not allowed")
)

// Principal is the authenticated caller of the current request.
type Principal struct {
	ID     uint
	RoleID uint32
	Token  string
}

// Actor converts the principal for the booking service.
func (p Principal) Actor() booking.Actor {
	return booking.Actor{ID: p.ID, RoleID: p.RoleID}
}

// GetPrincipal returns the caller set by ValidateLoginToken.
func GetPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// GetUserID returns the id of the authenticated subject.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetRoleID returns the role id of the authenticated subject.
func GetRoleID(c *gin.Context) (uint32, bool) {
	v, ok := c.Get(RoleIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint32)
	return id, ok
}

// extractToken reads the session-token header, then Authorization: Bearer.
func extractToken(c *gin.Context) string {
	if tok := strings.TrimSpace(c.GetHeader("session-token")); tok != "" {
		return tok
	}
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func abortNotAuthorized(c *gin.Context, err error) {
	util.CallUserNotAuthorized(c, util.APIErrorParams{
		Msg: "Not Authorized Login Again",
		Err: err,
	})
	c.Abort()
}

// ValidateLoginToken authenticates the request. The token must carry a
// valid signature and match a live session, looked up in Redis first and
// in the sessions table otherwise.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortNotAuthorized(c, ErrMissingToken)
			return
		}

		claims, err := util.ParseSessionToken(token)
		if err != nil {
			abortNotAuthorized(c, err)
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		subjectID, roleID, found, err := util.LookupCachedSession(ctx, token)
		if err != nil {
			log.Printf("session cache lookup failed, using database: %v", err)
			found = false
		}
		if !found {
			var session model.Session
			if err := db.Where("session_token = ? AND expires_at > ?", token, time.Now()).First(&session).Error; err != nil {
				abortNotAuthorized(c, ErrSessionRevoked)
				return
			}
			subjectID, roleID = session.UserID, session.RoleID
			if err := util.CacheSession(ctx, token, subjectID, roleID, time.Until(session.ExpiresAt)); err != nil {
				log.Printf("failed to cache session: %v", err)
			}
		}

		if subjectID != claims.ID || roleID != claims.RoleID {
			abortNotAuthorized(c, ErrSessionRevoked)
			return
		}

		c.Set(principalKey, Principal{ID: subjectID, RoleID: roleID, Token: token})
		c.Set(UserIDKey, subjectID)
		c.Set(RoleIDKey, roleID)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
// It must run after ValidateLoginToken.
func RequireRole(roles ...uint32) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortNotAuthorized(c, ErrMissingToken)
			return
		}
		for _, r := range roles {
			if p.RoleID == r {
				c.Next()
				return
			}
		}
		util.LogUnauthorizedAccess(fmt.Sprintf("%d", p.ID), c.ClientIP(), c.Request.URL.Path,
			fmt.Sprintf("role %s not allowed", model.RoleName(p.RoleID)))
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "Not Authorized Login Again",
			Err: ErrRoleNotAllowed,
		})
		c.Abort()
	}
}
