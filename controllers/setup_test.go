package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-booking-engine/models"
	"hotel-booking-engine/services"
)

type harness struct {
	db     *gorm.DB
	router *gin.Engine
	room   models.Room
	deluxe models.RoomType
	guest  models.Guest
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.HotelSetting{}, &models.RoomType{}, &models.Room{}, &models.Guest{},
		&models.RatePlan{}, &models.RoomRate{}, &models.Booking{},
		&models.ComplimentaryCredit{}, &models.BookingModification{},
	))

	h := &harness{db: db}
	require.NoError(t, db.Create(&models.HotelSetting{
		Name: "Test Hotel", Currency: "USD", ServiceTaxRate: decimal.RequireFromString("0.10"),
		CheckInTime: "14:00", CheckOutTime: "11:00", TimeZone: "UTC", AdvanceAnchor: "today",
	}).Error)
	h.deluxe = models.RoomType{Code: "DLX", Name: "Deluxe", BasePrice: decimal.NewFromInt(150), MinOccupancy: 1, MaxOccupancy: 2}
	require.NoError(t, db.Create(&h.deluxe).Error)
	h.room = models.Room{RoomNumber: "201", Floor: "2", RoomTypeID: h.deluxe.ID, Status: models.RoomAvailable}
	require.NoError(t, db.Create(&h.room).Error)
	h.guest = models.Guest{FullName: "Somchai Jaidee", Email: "somchai@example.com"}
	require.NoError(t, db.Create(&h.guest).Error)
	require.NoError(t, db.Create(&models.RatePlan{
		Name: "Weekend Rate", Code: "WEEKEND", PlanType: models.PlanSeasonal, AdjustmentType: models.AdjustPercentage,
		AdjustmentValue: decimal.NewFromInt(15), AppliesFriday: true, AppliesSaturday: true, AppliesSunday: true,
		MinNights: 1, Priority: 10, IsActive: true,
	}).Error)

	now := func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	settings := services.NewSettingsService(db)
	bookings := services.NewBookingService(db, settings, nil)
	bookings.Now = now
	rates := services.NewRateService(db, settings)
	rates.Now = now

	avail := NewAvailabilityController(bookings)
	bc := NewBookingController(bookings)
	rc := NewRateController(rates)
	roomc := NewRoomController(services.NewRoomService(db))
	cc := NewCreditController(services.NewCreditService(db), bookings)
	sc := NewSettingsController(settings)

	r := gin.New()
	r.GET("/availability", avail.CheckAvailability)
	r.GET("/availability/audit", avail.AuditOverlaps)
	r.GET("/rates/resolve", rc.ResolveRate)
	r.POST("/rate-plans", rc.CreatePlan)
	r.GET("/bookings", bc.GetBookings)
	r.POST("/bookings", bc.CreateBooking)
	r.POST("/bookings/quote", bc.QuoteBooking)
	r.GET("/bookings/:id", bc.GetBooking)
	r.POST("/bookings/:id/checkout", bc.CheckoutBooking)
	r.POST("/bookings/:id/cancel", bc.CancelBooking)
	r.PATCH("/rooms/:id/status", roomc.UpdateRoomStatus)
	r.POST("/guests/:id/credits", cc.GrantCredits)
	r.POST("/guests/:id/credits/apply", cc.ApplyCredits)
	r.GET("/settings/hotel", sc.GetHotelSettings)
	r.PUT("/settings/hotel", sc.UpdateHotelSettings)
	h.router = r
	return h
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	code, _ := e["code"].(string)
	return code
}

func (h *harness) booking(in, out string) gin.H {
	return gin.H{"room_id": h.room.ID, "guest_id": h.guest.ID, "check_in": in, "check_out": out, "adults": 2}
}
