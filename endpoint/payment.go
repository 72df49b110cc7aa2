package endpoint

import (
	"errors"
	"fmt"

	"github.com/ariebrainware/doctor-appointment/payment"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
)

type VerifyPaymentRequest struct {
	OrderID string `json:"razorpay_order_id" example:"order_Hx9Tz1"`
}

func getPaymentsOrRespond(c *gin.Context) (*payment.Service, bool) {
	p, ok := getProvidersOrRespond(c)
	if !ok {
		return nil, false
	}
	if p.Payments == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Payments not available", Err: fmt.Errorf("payment service is nil")})
		return nil, false
	}
	return p.Payments, true
}

// PaymentRazorpay godoc
// @Summary      Create a payment order
// @Description  Opens a processor order for the appointment fee in minor units.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body AppointmentIDRequest true "Appointment"
// @Success      200 {object} util.APIResponse{data=payment.Order}
// @Failure      400 {object} util.APIResponse "Appointment not found or already cancelled"
// @Failure      403 {object} util.APIResponse
// @Router       /user/payment-razorpay [post]
func PaymentRazorpay(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	id, ok := bindAppointmentIDOrRespond(c)
	if !ok {
		return
	}
	svc, ok := getPaymentsOrRespond(c)
	if !ok {
		return
	}

	order, err := svc.CreateOrder(c.Request.Context(), principal.ID, id)
	if err != nil {
		params := util.APIErrorParams{Err: err}
		switch {
		case errors.Is(err, payment.ErrAppointmentUnavailable):
			params.Msg = "Appointment not found or already cancelled"
			util.CallUserError(c, params)
		case errors.Is(err, payment.ErrNotOwner):
			params.Msg = "You are not authorized to pay for this appointment"
			util.CallForbidden(c, params)
		case errors.Is(err, payment.ErrAlreadyPaid):
			params.Msg = "Appointment is already paid"
			util.CallUserError(c, params)
		default:
			params.Msg = "Unable to create payment order"
			util.CallServerError(c, params)
		}
		return
	}

	util.LogAppointmentEvent(util.EventPaymentOrderCreated, principal.ID, principal.RoleID, id, c.ClientIP(), "Payment order "+order.ID)
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Order created", Data: order})
}

// VerifyRazorpay godoc
// @Summary      Verify a payment order
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body VerifyPaymentRequest true "Order"
// @Success      200 {object} util.APIResponse{data=model.Appointment} "Payment successful"
// @Failure      400 {object} util.APIResponse "Payment failed"
// @Failure      403 {object} util.APIResponse
// @Router       /user/verify-razorpay [post]
func VerifyRazorpay(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	var req VerifyPaymentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}
	if req.OrderID == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: msgAllFieldsRequired, Err: errMissingFields})
		return
	}
	svc, ok := getPaymentsOrRespond(c)
	if !ok {
		return
	}

	appt, err := svc.Verify(c.Request.Context(), principal.ID, req.OrderID)
	if err != nil {
		params := util.APIErrorParams{Err: err}
		switch {
		case errors.Is(err, payment.ErrNotOwner):
			params.Msg = "You are not authorized to verify this payment"
			util.CallForbidden(c, params)
		case errors.Is(err, payment.ErrAppointmentUnavailable):
			params.Msg = "Appointment not found or already cancelled"
			util.CallUserError(c, params)
		case errors.Is(err, payment.ErrPaymentFailed),
			errors.Is(err, payment.ErrInvalidReceipt),
			errors.Is(err, payment.ErrOrderNotFound):
			params.Msg = "Payment failed"
			util.LogAppointmentEvent(util.EventPaymentFailed, principal.ID, principal.RoleID, 0, c.ClientIP(), "Payment failed for order "+req.OrderID)
			util.CallUserError(c, params)
		default:
			params.Msg = "Unable to verify payment, please try again"
			util.CallServerError(c, params)
		}
		return
	}

	util.LogAppointmentEvent(util.EventPaymentVerified, principal.ID, principal.RoleID, appt.ID, c.ClientIP(), "Payment verified")
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Payment successful", Data: appt})
}
