package config

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-booking-engine/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", " Postgres ")
	t.Setenv("SEED", "false")
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, DriverPostgres, c.DBDriver)
	assert.False(t, c.Seed)
	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, "warn", c.DBLogLevel)
}

func TestResolveDSN(t *testing.T) {
	dsn, err := ResolveDSN(Config{DBDriver: DriverMySQL, MySQLURL: "mysql://hotel:pw@db.internal/hotel_db"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "hotel:pw@tcp(db.internal:3306)/hotel_db?")
	assert.Contains(t, dsn, "parseTime=True")

	_, err = ResolveDSN(Config{DBDriver: DriverMySQL, MySQLURL: "mysql://hotel:pw@db.internal"})
	assert.Error(t, err)

	dsn, err = ResolveDSN(Config{DBDriver: DriverMySQL, DBUser: "root", DBPass: "pw", DBHost: "127.0.0.1", DBName: "hotel_db"})
	require.NoError(t, err)
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/hotel_db?charset=utf8mb4&parseTime=True&loc=UTC", dsn)

	dsn, err = ResolveDSN(Config{DBDriver: DriverPostgres, DBUser: "hotel", DBPass: "pw", DBHost: "pg", DBName: "hotel"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "host=pg port=5432")

	dsn, err = ResolveDSN(Config{DBDriver: DriverPostgres, DatabaseURL: "postgres://u:p@pg/hotel"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@pg/hotel", dsn)

	_, err = ResolveDSN(Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, gormLogLevel("INFO"))
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}

func TestSeedDatabase_Idempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	require.NoError(t, SeedDatabase(db))
	require.NoError(t, SeedDatabase(db))

	var rooms, plans, settings int64
	db.Model(&models.Room{}).Count(&rooms)
	db.Model(&models.RatePlan{}).Count(&plans)
	db.Model(&models.HotelSetting{}).Count(&settings)
	assert.EqualValues(t, 9, rooms)
	assert.EqualValues(t, 2, plans)
	assert.EqualValues(t, 1, settings)

	var weekend models.RatePlan
	require.NoError(t, db.Where("code = ?", "WEEKEND").First(&weekend).Error)
	assert.True(t, weekend.AppliesSaturday)
	assert.False(t, weekend.AppliesMonday)
}
