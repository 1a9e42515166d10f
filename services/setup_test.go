package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-booking-engine/models"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fixture struct {
	db       *gorm.DB
	bookings *BookingService
	rates    *RateService
	rooms    *RoomService
	credits  *CreditService
	settings *SettingsService
	pub      *recordingPublisher

	room   models.Room
	deluxe models.RoomType
	guest  models.Guest
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.HotelSetting{},
		&models.RoomType{},
		&models.Room{},
		&models.Guest{},
		&models.RatePlan{},
		&models.RoomRate{},
		&models.Booking{},
		&models.ComplimentaryCredit{},
		&models.BookingModification{},
	))
	return db
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(s string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db, pub: &recordingPublisher{}}
	f.settings = NewSettingsService(db)
	f.bookings = NewBookingService(db, f.settings, f.pub)
	f.bookings.Now = at("2025-06-01T09:00:00Z")
	f.rates = NewRateService(db, f.settings)
	f.rates.Now = f.bookings.Now
	f.rooms = NewRoomService(db)
	f.credits = NewCreditService(db)

	require.NoError(t, db.Create(&models.HotelSetting{
		Name:           "Test Hotel",
		Currency:       "USD",
		ServiceTaxRate: dec("0.10"),
		CheckInTime:    "14:00",
		CheckOutTime:   "11:00",
		TimeZone:       "UTC",
		AdvanceAnchor:  "today",
	}).Error)

	f.deluxe = models.RoomType{Code: "DLX", Name: "Deluxe", BasePrice: dec("150"), MinOccupancy: 1, MaxOccupancy: 2}
	require.NoError(t, db.Create(&f.deluxe).Error)
	f.room = models.Room{RoomNumber: "201", Floor: "2", RoomTypeID: f.deluxe.ID, Status: models.RoomAvailable}
	require.NoError(t, db.Create(&f.room).Error)
	f.guest = models.Guest{FullName: "Somchai Jaidee", Email: "somchai@example.com"}
	require.NoError(t, db.Create(&f.guest).Error)

	std := models.RatePlan{
		Name: "Standard", Code: "STD", PlanType: models.PlanStandard, AdjustmentType: models.AdjustPercentage,
		AppliesMonday: true, AppliesTuesday: true, AppliesWednesday: true, AppliesThursday: true,
		AppliesFriday: true, AppliesSaturday: true, AppliesSunday: true,
		MinNights: 1, IsActive: true,
	}
	weekend := models.RatePlan{
		Name: "Weekend Rate", Code: "WEEKEND", PlanType: models.PlanSeasonal, AdjustmentType: models.AdjustPercentage,
		AdjustmentValue: dec("15"), AppliesFriday: true, AppliesSaturday: true, AppliesSunday: true,
		MinNights: 1, Priority: 10, IsActive: true,
	}
	require.NoError(t, db.Create(&std).Error)
	require.NoError(t, db.Create(&weekend).Error)
	return f
}

func (f *fixture) request(t *testing.T, in, out string) BookingRequest {
	return BookingRequest{
		RoomID:   f.room.ID,
		GuestID:  f.guest.ID,
		CheckIn:  day(t, in),
		CheckOut: day(t, out),
		Adults:   2,
		Actor:    "frontdesk",
	}
}

func (f *fixture) roomStatus(t *testing.T) models.RoomStatus {
	t.Helper()
	var r models.Room
	require.NoError(t, f.db.First(&r, f.room.ID).Error)
	return r.Status
}

func (f *fixture) creditBalance(t *testing.T) int {
	t.Helper()
	var c models.ComplimentaryCredit
	err := f.db.Where("guest_id = ? AND room_type_id = ?", f.guest.ID, f.deluxe.ID).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return 0
	}
	require.NoError(t, err)
	return c.NightsAvailable
}
