package sandbox

import (
	"reflect"
	"strings"
	"sync"

	"tiquetera/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var fieldNamesOnce sync.Once

// useJSONFieldNames makes binding errors name fields as they appear on
// the wire.
func useJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// SetupRoutes registers the backend API under rg
func SetupRoutes(rg *gin.RouterGroup, controller *Controller, resolver middleware.TokenResolver) {
	useJSONFieldNames()

	users := rg.Group("/users")
	{
		users.POST("/login/", controller.Login)
		users.POST("/register/", controller.Register)
		users.GET("/verify-email/", controller.VerifyEmail)
		users.POST("/resend-verification-email/", controller.ResendVerification)
		users.GET("/profile/", middleware.TokenAuth(resolver), controller.Profile)
	}

	rg.GET("/departments/", controller.Departments)
	rg.GET("/cities/", controller.Cities)
	rg.GET("/catalogs/document-types/", controller.DocumentTypes)

	evs := rg.Group("/events")
	{
		evs.GET("/", controller.ListEvents)
		// /events/my/ is dispatched by GetEvent, so the route stays
		// optionally authenticated.
		evs.GET("/:id/", middleware.OptionalAuth(resolver), controller.GetEvent)
		evs.GET("/:id/types/", controller.TicketTypes)

		authenticated := evs.Group("")
		authenticated.Use(middleware.TokenAuth(resolver))
		{
			authenticated.POST("/:id/buy/", controller.Buy)
			authenticated.POST("/:id/pay/", controller.Pay)
		}
	}

	rg.POST("/payments/confirmation/", controller.Confirmation)
	rg.GET("/health/", controller.HealthCheck)
}

// SetupGatewayRoutes registers the simulated gateway and the default
// response page at the root of engine
func SetupGatewayRoutes(engine *gin.Engine, controller *Controller) {
	engine.POST(GatewayCheckoutPath, controller.GatewayCheckout)
	engine.POST(GatewayDecidePath, controller.GatewayDecide)
	engine.GET("/pago-exitoso/", controller.PaymentLanding)
}
