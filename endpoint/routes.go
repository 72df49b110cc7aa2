package endpoint

import (
	"time"

	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthRateLimit guards the login and registration routes.
var AuthRateLimit = middleware.RateLimitConfig{Limit: 10, Window: 15 * time.Minute}

// SetupRoutes installs the shared middleware chain and every /api/v1 route.
func SetupRoutes(router *gin.Engine, db *gorm.DB, providers *middleware.Providers) {
	router.Use(
		middleware.RequestID(),
		middleware.CORSMiddleware(),
		middleware.DatabaseMiddleware(db),
		middleware.ProvidersMiddleware(providers),
		middleware.EndpointCallLogger(),
	)

	authLimit := middleware.RateLimiter(AuthRateLimit)
	auth := middleware.ValidateLoginToken()
	v1 := router.Group("/api/v1")

	user := v1.Group("/user")
	{
		user.POST("/register", authLimit, RegisterUser)
		user.POST("/login", authLimit, LoginUser)

		patient := user.Group("", auth, middleware.RequireRole(model.RolePatient))
		patient.DELETE("/logout", Logout)
		patient.GET("/get-profile", GetUserProfile)
		patient.POST("/update-profile", UpdateUserProfile)
		patient.POST("/book-appointment", BookAppointment)
		patient.GET("/appointments", ListUserAppointments)
		patient.GET("/appointments/:id/receipt", AppointmentReceipt)
		patient.POST("/cancel-appointment", CancelUserAppointment)
		patient.POST("/payment-razorpay", PaymentRazorpay)
		patient.POST("/verify-razorpay", VerifyRazorpay)
	}

	doctor := v1.Group("/doctor")
	{
		doctor.GET("/list", ListDoctors)
		doctor.POST("/login", authLimit, DoctorLogin)

		own := doctor.Group("", auth, middleware.RequireRole(model.RoleDoctor))
		own.DELETE("/logout", Logout)
		own.GET("/appointments", DoctorAppointments)
		own.POST("/complete-appointment", CompleteAppointment)
		own.POST("/cancel-appointment", DoctorCancelAppointment)
		own.GET("/dashboard", DoctorDashboardHandler)
		own.GET("/profile", DoctorProfile)
		own.POST("/update-profile", UpdateDoctorProfile)
	}

	admin := v1.Group("/admin")
	{
		admin.POST("/login", authLimit, AdminLogin)

		staff := admin.Group("", auth, middleware.RequireRole(model.RoleAdmin))
		staff.DELETE("/logout", Logout)
		staff.POST("/add-doctor", AddDoctor)
		staff.GET("/all-doctors", AllDoctors)
		staff.POST("/change-availability", ChangeAvailability)
		staff.GET("/appointments", AdminAppointments)
		staff.POST("/cancel-appointment", AdminCancelAppointment)
		staff.GET("/dashboard", AdminDashboardHandler)
	}

	v1.GET("/token/validate", auth, ValidateToken)
}
