package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"hotel-booking-engine/controllers"
	"hotel-booking-engine/middleware"
	"hotel-booking-engine/utils"
)

// Controllers groups the handlers the router mounts.
type Controllers struct {
	Availability *controllers.AvailabilityController
	Bookings     *controllers.BookingController
	Rates        *controllers.RateController
	Rooms        *controllers.RoomController
	RoomTypes    *controllers.RoomTypeController
	Credits      *controllers.CreditController
	Settings     *controllers.SettingsController
}

func parseCorsOrigins(raw string) []string {
	origins := utils.SplitCSV(raw)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter wires middleware and every /api route.
func SetupRouter(h Controllers, corsOrigins, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Actor(jwtSecret), middleware.Logger())

	origins := parseCorsOrigins(corsOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		availability := api.Group("/availability")
		{
			availability.GET("", h.Availability.CheckAvailability)
			availability.GET("/audit", h.Availability.AuditOverlaps)
		}

		api.GET("/rates/resolve", h.Rates.ResolveRate)

		bookings := api.Group("/bookings")
		{
			bookings.GET("", h.Bookings.GetBookings)
			bookings.POST("", h.Bookings.CreateBooking)

			// must stay before /:id
			bookings.POST("/quote", h.Bookings.QuoteBooking)

			bookings.GET("/:id", h.Bookings.GetBooking)
			bookings.GET("/:id/modifications", h.Bookings.GetModifications)
			bookings.POST("/:id/checkin", h.Bookings.CheckIn)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
			bookings.POST("/:id/no-show", h.Bookings.MarkNoShow)
			bookings.POST("/:id/shorten", h.Bookings.ShortenStay)
			bookings.GET("/:id/checkout-preview", h.Bookings.PreviewCheckout)
			bookings.POST("/:id/checkout", h.Bookings.CheckoutBooking)
		}

		plans := api.Group("/rate-plans")
		{
			plans.GET("", h.Rates.GetPlans)
			plans.POST("", h.Rates.CreatePlan)
			plans.PUT("/:id", h.Rates.UpdatePlan)
			plans.DELETE("/:id", h.Rates.DeletePlan)
		}

		roomRates := api.Group("/room-rates")
		{
			roomRates.GET("", h.Rates.GetRoomRates)
			roomRates.POST("", h.Rates.CreateRoomRate)
			roomRates.DELETE("/:id", h.Rates.DeleteRoomRate)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.Rooms.GetRooms)
			rooms.POST("", h.Rooms.CreateRoom)
			rooms.GET("/:id", h.Rooms.GetRoom)
			rooms.PATCH("/:id/status", h.Rooms.UpdateRoomStatus)
		}

		roomTypes := api.Group("/room-types")
		{
			roomTypes.GET("", h.RoomTypes.GetRoomTypes)
			roomTypes.POST("", h.RoomTypes.CreateRoomType)
			roomTypes.DELETE("/:id", h.RoomTypes.DeleteRoomType)
		}

		guests := api.Group("/guests")
		{
			guests.GET("/:id/credits", h.Credits.GetCredits)
			guests.POST("/:id/credits", h.Credits.GrantCredits)
			guests.POST("/:id/credits/apply", h.Credits.ApplyCredits)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/hotel", h.Settings.GetHotelSettings)
			settings.PUT("/hotel", h.Settings.UpdateHotelSettings)
		}
	}

	return r
}
