package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
)

func corporatePlan() *models.RatePlan {
	return &models.RatePlan{
		Name: "Acme Corp", Code: "corp", PlanType: models.PlanCorporate, AdjustmentType: models.AdjustOverride,
		AppliesMonday: true, AppliesTuesday: true, AppliesWednesday: true, AppliesThursday: true,
		AppliesFriday: true, AppliesSaturday: true, AppliesSunday: true,
		MinNights: 1, Priority: 20, IsActive: true,
	}
}

func TestResolveRate_WeekendPlan(t *testing.T) {
	f := newFixture(t)
	nightly, err := f.rates.ResolveRate(context.Background(), RateQuery{
		RoomTypeID: f.deluxe.ID,
		CheckIn:    day(t, "2025-06-12"),
		CheckOut:   day(t, "2025-06-14"),
	})
	require.NoError(t, err)
	require.Len(t, nightly, 2)
	assert.Equal(t, "STD", nightly[0].RateCode)
	assert.Equal(t, "150.00", nightly[0].Price.StringFixed(2))
	assert.Equal(t, "WEEKEND", nightly[1].RateCode)
	assert.Equal(t, "172.50", nightly[1].Price.StringFixed(2))
	assert.Equal(t, engine.SourceAdjustment, nightly[1].Source)
}

func TestResolveRate_OverrideNeedsRoomRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := corporatePlan()
	require.NoError(t, f.rates.CreatePlan(ctx, plan))
	assert.Equal(t, "CORP", plan.Code)

	q := RateQuery{RoomTypeID: f.deluxe.ID, CheckIn: day(t, "2025-06-10"), CheckOut: day(t, "2025-06-11")}
	nightly, err := f.rates.ResolveRate(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "STD", nightly[0].RateCode, "override plan without a row is skipped")

	require.NoError(t, f.rates.CreateRoomRate(ctx, &models.RoomRate{
		RatePlanID: plan.ID, RoomTypeID: f.deluxe.ID, Price: dec("120"), EffectiveFrom: day(t, "2025-06-01"),
	}))
	nightly, err = f.rates.ResolveRate(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "CORP", nightly[0].RateCode)
	assert.Equal(t, "120.00", nightly[0].Price.StringFixed(2))
	assert.Equal(t, engine.SourceRoomRate, nightly[0].Source)

	rates, err := f.rates.ListRoomRates(ctx, plan.ID, 0)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
}

func TestResolveRate_RoomCustomPrice(t *testing.T) {
	f := newFixture(t)
	custom := dec("200")
	require.NoError(t, f.db.Model(&models.Room{}).Where("id = ?", f.room.ID).Update("custom_price", custom).Error)

	nightly, err := f.rates.ResolveRate(context.Background(), RateQuery{
		RoomID: f.room.ID, CheckIn: day(t, "2025-06-13"), CheckOut: day(t, "2025-06-14"),
	})
	require.NoError(t, err)
	assert.Equal(t, "230.00", nightly[0].Price.StringFixed(2))
}

func TestResolveRate_RequestedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := RateQuery{RoomTypeID: f.deluxe.ID, CheckIn: day(t, "2025-06-13"), CheckOut: day(t, "2025-06-14"), RateCode: "STD"}
	nightly, err := f.rates.ResolveRate(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "150.00", nightly[0].Price.StringFixed(2))

	q.RateCode = "NOPE"
	_, err = f.rates.ResolveRate(ctx, q)
	var re *engine.RateResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, engine.ReasonNoApplicablePlan, re.Reason)
}

func TestDeletePlan_Deactivates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plans, err := f.rates.ListPlans(ctx, true)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "WEEKEND", plans[0].Code, "highest priority first")

	require.NoError(t, f.rates.DeletePlan(ctx, plans[0].ID))
	active, err := f.rates.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := f.rates.ListPlans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, f.rates.DeletePlan(ctx, 999), engine.ErrNotFound)
}

func TestCreatePlan_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := corporatePlan()
	p.Code = "base"
	assert.ErrorIs(t, f.rates.CreatePlan(ctx, p), engine.ErrValidation)

	p = corporatePlan()
	p.AdjustmentType = "bogus"
	assert.ErrorIs(t, f.rates.CreatePlan(ctx, p), engine.ErrValidation)

	p = corporatePlan()
	p.PlanType = ""
	require.NoError(t, f.rates.CreatePlan(ctx, p))
	assert.Equal(t, models.PlanStandard, p.PlanType)

	p.Priority = 30
	require.NoError(t, f.rates.UpdatePlan(ctx, p.ID, p))
	assert.ErrorIs(t, f.rates.UpdatePlan(ctx, 999, corporatePlan()), engine.ErrNotFound)
}

func TestCreateRoomRate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.rates.CreateRoomRate(ctx, &models.RoomRate{RatePlanID: 1, RoomTypeID: f.deluxe.ID, Price: dec("-1"), EffectiveFrom: day(t, "2025-06-01")})
	assert.ErrorIs(t, err, engine.ErrValidation)

	to := day(t, "2025-05-01")
	err = f.rates.CreateRoomRate(ctx, &models.RoomRate{RatePlanID: 1, RoomTypeID: f.deluxe.ID, Price: dec("1"), EffectiveFrom: day(t, "2025-06-01"), EffectiveTo: &to})
	assert.ErrorIs(t, err, engine.ErrValidation)

	err = f.rates.CreateRoomRate(ctx, &models.RoomRate{RatePlanID: 99, RoomTypeID: f.deluxe.ID, Price: dec("1"), EffectiveFrom: day(t, "2025-06-01")})
	assert.ErrorIs(t, err, engine.ErrNotFound)

	assert.ErrorIs(t, f.rates.DeleteRoomRate(ctx, 42), engine.ErrNotFound)
}
