package middleware

import (
	"github.com/ariebrainware/doctor-appointment/booking"
	"github.com/ariebrainware/doctor-appointment/payment"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
)

const providersKey = "providers"

// Providers bundles the long-lived services handlers need.
// Mailer may be nil, which turns notifications off.
type Providers struct {
	Booking  *booking.Service
	Payments *payment.Service
	Images   util.ImageUploader
	Mailer   util.Mailer
	Doctors  *util.DoctorListCache
}

func ProvidersMiddleware(p *Providers) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(providersKey, p)
		c.Next()
	}
}

// GetProviders returns the injected providers, or nil.
func GetProviders(c *gin.Context) *Providers {
	v, ok := c.Get(providersKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Providers)
	return p
}
