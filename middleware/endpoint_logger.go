package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger logs each HTTP request as an endpoint event once the
// handler chain has finished.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
		}

		event := util.SecurityEvent{
			EventType: util.EventEndpointCall,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: GetRequestID(c),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		}
		if p, ok := GetPrincipal(c); ok {
			event.SubjectID = fmt.Sprintf("%d", p.ID)
			event.Role = model.RoleName(p.RoleID)
			if contact, ok := util.GetContact(GetDB(c), p.RoleID, p.ID); ok {
				event.Email = contact.Email
			}
		}
		util.LogSecurityEvent(event)
	}
}
