package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-booking-engine/models"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "UTC")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode()), nil
}

// ResolveDSN builds the driver DSN from a URL setting or the DB_* parts.
func ResolveDSN(c Config) (string, error) {
	switch c.DBDriver {
	case DriverPostgres:
		if raw := strings.TrimSpace(c.DatabaseURL); raw != "" {
			return raw, nil
		}
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, port, c.DBUser, c.DBPass, c.DBName), nil
	case DriverMySQL, "":
		raw := strings.TrimSpace(c.MySQLURL)
		if raw == "" {
			raw = strings.TrimSpace(c.DatabaseURL)
		}
		if raw != "" {
			if strings.HasPrefix(raw, "mysql://") {
				return mysqlDSNFromURL(raw)
			}
			return raw, nil
		}
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DBUser, c.DBPass, c.DBHost, port, c.DBName), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// ConnectDatabase opens the configured database, migrates it and seeds an
// empty schema when SEED is on.
func ConnectDatabase(c Config) (*gorm.DB, error) {
	dsn, err := ResolveDSN(c)
	if err != nil {
		return nil, err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(c.DBLogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	var dialector gorm.Dialector
	if c.DBDriver == DriverPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = mysql.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger, TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if c.DBDriver == DriverPostgres {
		ensureNoOverlapConstraint(db)
	}
	if c.Seed {
		if err := SeedDatabase(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates tables in parent->child order.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.HotelSetting{},
		&models.RoomType{},
		&models.Room{},
		&models.Guest{},
		&models.RatePlan{},
		&models.RoomRate{},
		&models.Booking{},
		&models.ComplimentaryCredit{},
		&models.BookingModification{},
	)
}

// ensureNoOverlapConstraint adds the database-level double booking guard on
// PostgreSQL. Violations surface as SQLSTATE 23P01.
func ensureNoOverlapConstraint(db *gorm.DB) {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		log.Printf("⚠️  btree_gist unavailable, relying on row locks only: %v", err)
		return
	}
	err := db.Exec(`
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
		ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
		EXCLUDE USING gist (
			room_id WITH =,
			daterange(check_in_date, check_out_date, '[)') WITH &&
		) WHERE (status NOT IN ('cancelled', 'no_show') AND deleted_at IS NULL);
	END IF;
END $$;`).Error
	if err != nil {
		log.Printf("⚠️  failed to add bookings_no_overlap constraint: %v", err)
		return
	}
	log.Println("✅ bookings_no_overlap constraint ensured")
}

// SeedDatabase fills an empty schema with a small working hotel.
func SeedDatabase(db *gorm.DB) error {
	var settingsCount int64
	db.Model(&models.HotelSetting{}).Count(&settingsCount)
	if settingsCount == 0 {
		hotel := models.HotelSetting{
			Name:           "Demo Hotel",
			Currency:       "USD",
			ServiceTaxRate: decimal.RequireFromString("0.10"),
			CheckInTime:    "14:00",
			CheckOutTime:   "11:00",
			TimeZone:       "UTC",
			AdvanceAnchor:  "today",
		}
		if err := db.Create(&hotel).Error; err != nil {
			return fmt.Errorf("failed to seed hotel settings: %w", err)
		}
		log.Println("Hotel settings seeded")
	}

	var rtCount int64
	db.Model(&models.RoomType{}).Count(&rtCount)
	if rtCount == 0 {
		roomTypes := []models.RoomType{
			{Code: "STD", Name: "Standard", Description: "Standard Room", BasePrice: decimal.NewFromInt(100), MinOccupancy: 1, MaxOccupancy: 2},
			{Code: "SUP", Name: "Superior", Description: "Superior Room", BasePrice: decimal.NewFromInt(120), MinOccupancy: 1, MaxOccupancy: 3},
			{Code: "DLX", Name: "Deluxe", Description: "Deluxe Room", BasePrice: decimal.NewFromInt(150), MinOccupancy: 1, MaxOccupancy: 4},
		}
		if err := db.Create(&roomTypes).Error; err != nil {
			return fmt.Errorf("failed to seed room types: %w", err)
		}

		var rooms []models.Room
		for i, rt := range roomTypes {
			floor := fmt.Sprint(i + 1)
			for n := 1; n <= 3; n++ {
				rooms = append(rooms, models.Room{
					RoomNumber: fmt.Sprintf("%s0%d", floor, n),
					Floor:      floor,
					RoomTypeID: rt.ID,
					Status:     models.RoomAvailable,
				})
			}
		}
		if err := db.Omit("RoomType").Create(&rooms).Error; err != nil {
			return fmt.Errorf("failed to seed rooms: %w", err)
		}
		log.Println("RoomTypes and rooms seeded")
	}

	var planCount int64
	db.Model(&models.RatePlan{}).Count(&planCount)
	if planCount == 0 {
		plans := []models.RatePlan{
			{
				Name: "Standard Rate", Code: "STD", PlanType: models.PlanStandard, AdjustmentType: models.AdjustPercentage,
				AppliesMonday: true, AppliesTuesday: true, AppliesWednesday: true, AppliesThursday: true,
				AppliesFriday: true, AppliesSaturday: true, AppliesSunday: true,
				MinNights: 1, IsActive: true,
			},
			{
				Name: "Weekend Rate", Code: "WEEKEND", PlanType: models.PlanSeasonal, AdjustmentType: models.AdjustPercentage,
				AdjustmentValue: decimal.NewFromInt(15), AppliesFriday: true, AppliesSaturday: true, AppliesSunday: true,
				MinNights: 1, Priority: 10, IsActive: true,
			},
		}
		if err := db.Create(&plans).Error; err != nil {
			return fmt.Errorf("failed to seed rate plans: %w", err)
		}
		log.Println("Rate plans seeded")
	}
	return nil
}
