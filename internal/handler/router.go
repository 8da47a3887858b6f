package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salonpay-be/internal/logger"
	"salonpay-be/internal/middleware"
	"salonpay-be/internal/payment"
)

// createRoutes are relative to the /payments group.
var createRoutes = map[payment.Provider]string{
	payment.ProviderStripe: "/stripe/create-payment-intent",
	payment.ProviderTamara: "/tamara/create-checkout",
	payment.ProviderTabby:  "/tabby/create-checkout",
}

// NewRouter wires every route. Provider routes are registered per
// provider so paths stay static.
func NewRouter(h *PaymentHandler, jwtSecret []byte) *gin.Engine {
	router := gin.New()

	router.Use(logger.RequestID())
	router.Use(logger.AccessLog())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit())

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	payments := router.Group("/payments")
	{
		payments.POST("/status", h.GetStatus)
		payments.GET("/status", h.GetStatus)

		admin := middleware.RequireAdmin(jwtSecret)
		for _, p := range payment.AllProviders {
			base := "/" + p.String()

			payments.POST(createRoutes[p], h.CreateCheckout(p))
			payments.POST(base+"/webhook", h.Webhook(p))

			payments.POST(base+"/capture", admin, h.Capture(p))
			payments.POST(base+"/refund", admin, h.Refund(p))
			payments.POST(base+"/cancel", admin, h.Cancel(p))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}
