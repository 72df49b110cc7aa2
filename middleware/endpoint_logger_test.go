package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariebrainware/doctor-appointment/config"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureSecurityLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	original := util.GetSecurityLoggerForTest()
	util.SetSecurityLoggerForTest(log.New(buf, "", 0))
	t.Cleanup(func() { util.SetSecurityLoggerForTest(original) })
	return buf
}

func TestEndpointCallLogger_Anonymous(t *testing.T) {
	buf := captureSecurityLog(t)
	r := gin.New()
	r.Use(RequestID(), EndpointCallLogger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "rid-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "Event=ENDPOINT_CALL")
	assert.Contains(t, out, "GET /ping -> 418")
	assert.Contains(t, out, "RequestID=rid-42")
	assert.Contains(t, out, "Subject= ")
}

func TestEndpointCallLogger_WithPrincipal(t *testing.T) {
	config.ResetRedisClientForTest()
	buf := captureSecurityLog(t)
	util.InitContactCache(10)

	db := newInMemoryDB(t)
	user := model.User{Name: "Pat", Email: "pat@example.com", Password: "x"}
	assert.NoError(t, db.Create(&user).Error)
	token := createSession(t, db, user.ID, model.RolePatient, time.Now().Add(time.Hour))

	r := gin.New()
	r.Use(DatabaseMiddleware(db), EndpointCallLogger())
	r.GET("/me", ValidateLoginToken(), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("session-token", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	out := buf.String()
	assert.Contains(t, out, "Role=patient")
	assert.Contains(t, out, "Email=pat@example.com")
	assert.Contains(t, out, "GET /me -> 200")
}
