package endpoint

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookedAppointment(t *testing.T, env *testEnv, fees float64) (string, uint) {
	t.Helper()
	token := env.registerPatient(t, "Jane", "jane@example.com")
	doc := env.seedDoctor(t, "Dr. Who", "who@clinic.test", fees, true)
	w, resp := env.book(t, token, doc.ID, "20_10_2026", "10:30 AM")
	require.Equal(t, http.StatusCreated, w.Code)
	return token, idOf(t, resp)
}

func TestPaymentRazorpay_CreatesOrderInMinorUnits(t *testing.T) {
	env := setupTestEnv(t)
	token, apptID := bookedAppointment(t, env, 49.99)

	w, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	require.Equal(t, http.StatusOK, w.Code, "%v", resp)
	order := dataMap(t, resp)
	assert.Equal(t, float64(4999), order["amount"])
	assert.Equal(t, "INR", order["currency"])
	assert.Equal(t, fmt.Sprintf("%d", apptID), order["receipt"])

	var appt model.Appointment
	require.NoError(t, env.db.First(&appt, apptID).Error)
	assert.Equal(t, order["id"], appt.OrderID)
}

func TestPaymentRazorpay_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	token, apptID := bookedAppointment(t, env, 50)
	other := env.registerPatient(t, "John", "john@example.com")

	w, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  other,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": 9999},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Appointment not found or already cancelled", resp["message"])

	env.gateway.FailCreate = errors.New("gateway down")
	w, _ = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env.gateway.FailCreate = nil

	require.NoError(t, env.db.Model(&model.Appointment{}).Where("id = ?", apptID).Update("cancelled", true).Error)
	w, resp = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Appointment not found or already cancelled", resp["message"])
}

func TestVerifyRazorpay(t *testing.T) {
	env := setupTestEnv(t)
	token, apptID := bookedAppointment(t, env, 50)

	_, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	orderID := dataMap(t, resp)["id"].(string)

	w, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/verify-razorpay",
		token:  token,
		body:   map[string]string{"razorpay_order_id": orderID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment failed", resp["message"])

	env.gateway.MarkPaid(orderID)
	w, resp = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/verify-razorpay",
		token:  token,
		body:   map[string]string{"razorpay_order_id": orderID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment successful", resp["message"])

	var appt model.Appointment
	require.NoError(t, env.db.First(&appt, apptID).Error)
	assert.True(t, appt.Payment)

	w, resp = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Appointment is already paid", resp["message"])
}

func TestVerifyRazorpay_UnknownOrder(t *testing.T) {
	env := setupTestEnv(t)
	token := env.registerPatient(t, "Jane", "jane@example.com")

	w, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/verify-razorpay",
		token:  token,
		body:   map[string]string{"razorpay_order_id": "order_missing"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment failed", resp["message"])
}

func TestVerifyRazorpay_GatewayDown(t *testing.T) {
	env := setupTestEnv(t)
	token, apptID := bookedAppointment(t, env, 50)

	_, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	orderID := dataMap(t, resp)["id"].(string)
	env.gateway.MarkPaid(orderID)
	env.gateway.FailFetch = errors.New("dial tcp: i/o timeout")

	w, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/verify-razorpay",
		token:  token,
		body:   map[string]string{"razorpay_order_id": orderID},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEqual(t, "Payment failed", resp["message"])

	// Once the processor is reachable again the same order verifies.
	env.gateway.FailFetch = nil
	w, resp = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/verify-razorpay",
		token:  token,
		body:   map[string]string{"razorpay_order_id": orderID},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Payment successful", resp["message"])
}

func TestVerifyRazorpay_CancelledAppointment(t *testing.T) {
	env := setupTestEnv(t)
	token, apptID := bookedAppointment(t, env, 50)

	_, resp := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/payment-razorpay",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	orderID := dataMap(t, resp)["id"].(string)

	w, _ := env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/cancel-appointment",
		token:  token,
		body:   map[string]interface{}{"appointmentId": apptID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	env.gateway.MarkPaid(orderID)

	w, resp = env.do(t, requestSpec{
		method: http.MethodPost,
		path:   "/api/v1/user/verify-razorpay",
		token:  token,
		body:   map[string]string{"razorpay_order_id": orderID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Appointment not found or already cancelled", resp["message"])

	var appt model.Appointment
	require.NoError(t, env.db.First(&appt, apptID).Error)
	assert.False(t, appt.Payment)
}

func TestAppointmentReceipt(t *testing.T) {
	env := setupTestEnv(t)
	token, apptID := bookedAppointment(t, env, 50)
	path := fmt.Sprintf("/api/v1/user/appointments/%d/receipt", apptID)

	w, resp := env.do(t, requestSpec{method: http.MethodGet, path: path, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Receipt is available after payment", resp["message"])

	other := env.registerPatient(t, "John", "john@example.com")
	w, _ = env.do(t, requestSpec{method: http.MethodGet, path: path, token: other})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, env.db.Model(&model.Appointment{}).Where("id = ?", apptID).Update("payment", true).Error)
	w, _ = env.do(t, requestSpec{method: http.MethodGet, path: path, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w, _ = env.do(t, requestSpec{method: http.MethodGet, path: "/api/v1/user/appointments/abc/receipt", token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.do(t, requestSpec{method: http.MethodGet, path: "/api/v1/user/appointments/9999/receipt", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
