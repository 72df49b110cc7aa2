package endpoint

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariebrainware/doctor-appointment/config"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"
)

func renderReceipt(appName string, appt *model.Appointment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(appName+" receipt", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 12, appName)
	pdf.Ln(14)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Payment receipt for appointment #%d", appt.ID))
	pdf.Ln(12)

	user := appt.UserData.Data()
	doc := appt.DocData.Data()
	rows := [][2]string{
		{"Patient", user.Name},
		{"Email", user.Email},
		{"Doctor", doc.Name},
		{"Speciality", doc.Speciality},
		{"Slot", appt.SlotDate + " " + appt.SlotTime},
		{"Booked on", time.UnixMilli(appt.Date).UTC().Format("02 Jan 2006 15:04 MST")},
		{"Order", appt.OrderID},
		{"Amount", fmt.Sprintf("%.2f %s", appt.Amount, config.LoadConfig().Currency)},
	}
	for _, r := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 8, r[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, r[1], "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AppointmentReceipt godoc
// @Summary      Download a payment receipt
// @Description  PDF receipt for a paid appointment owned by the caller.
// @Tags         User
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path int true "Appointment ID"
// @Success      200 {file} file
// @Failure      400 {object} util.APIResponse "Receipt is available after payment"
// @Failure      403 {object} util.APIResponse
// @Failure      404 {object} util.APIResponse
// @Router       /user/appointments/{id}/receipt [get]
func AppointmentReceipt(c *gin.Context) {
	principal, ok := principalOrRespond(c)
	if !ok {
		return
	}
	id, ok := getIDParam(c, "id")
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var appt model.Appointment
	if err := db.First(&appt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: msgDatabaseError, Err: err})
		return
	}
	if appt.UserID != principal.ID {
		util.CallForbidden(c, util.APIErrorParams{Msg: "You are not authorized to view this receipt", Err: errors.New("receipt of foreign appointment")})
		return
	}
	if !appt.Payment {
		util.CallUserError(c, util.APIErrorParams{Msg: "Receipt is available after payment", Err: errors.New("appointment not paid")})
		return
	}

	body, err := renderReceipt(config.LoadConfig().AppName, &appt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to render receipt", Err: err})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%d.pdf", appt.ID))
	c.Data(http.StatusOK, "application/pdf", body)
}
