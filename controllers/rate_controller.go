package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
	"hotel-booking-engine/services"
	"hotel-booking-engine/utils"
)

type RateController struct {
	RateSvc *services.RateService
}

func NewRateController(svc *services.RateService) *RateController {
	return &RateController{RateSvc: svc}
}

// ratePlanPayload mirrors models.RatePlan with date strings. Weekday flags
// and isActive default to true when omitted.
type ratePlanPayload struct {
	Name              string          `json:"name"`
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	PlanType          string          `json:"planType"`
	AdjustmentType    string          `json:"adjustmentType"`
	AdjustmentValue   decimal.Decimal `json:"adjustmentValue"`
	ValidFrom         string          `json:"validFrom"`
	ValidTo           string          `json:"validTo"`
	AppliesMonday     *bool           `json:"appliesMonday"`
	AppliesTuesday    *bool           `json:"appliesTuesday"`
	AppliesWednesday  *bool           `json:"appliesWednesday"`
	AppliesThursday   *bool           `json:"appliesThursday"`
	AppliesFriday     *bool           `json:"appliesFriday"`
	AppliesSaturday   *bool           `json:"appliesSaturday"`
	AppliesSunday     *bool           `json:"appliesSunday"`
	MinNights         int             `json:"minNights"`
	MaxNights         *int            `json:"maxNights"`
	MinAdvanceBooking int             `json:"minAdvanceBooking"`
	MaxAdvanceBooking *int            `json:"maxAdvanceBooking"`
	BlackoutDates     []string        `json:"blackoutDates"`
	Priority          int             `json:"priority"`
	IsActive          *bool           `json:"isActive"`
}

func orTrue(b *bool) bool { return b == nil || *b }

func (p ratePlanPayload) toModel() (*models.RatePlan, error) {
	from, err := optionalDate("validFrom", p.ValidFrom)
	if err != nil {
		return nil, err
	}
	to, err := optionalDate("validTo", p.ValidTo)
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, &engine.ValidationError{Field: "validTo", Message: "must not precede validFrom"}
	}
	blackout := make([]string, 0, len(p.BlackoutDates))
	for _, raw := range p.BlackoutDates {
		d, err := engine.ParseDate("blackoutDates", raw)
		if err != nil {
			return nil, err
		}
		blackout = append(blackout, engine.FormatDate(d))
	}
	raw, err := json.Marshal(blackout)
	if err != nil {
		return nil, err
	}
	minNights := p.MinNights
	if minNights <= 0 {
		minNights = 1
	}
	return &models.RatePlan{
		Name:              p.Name,
		Code:              p.Code,
		Description:       p.Description,
		PlanType:          p.PlanType,
		AdjustmentType:    p.AdjustmentType,
		AdjustmentValue:   p.AdjustmentValue,
		ValidFrom:         from,
		ValidTo:           to,
		AppliesMonday:     orTrue(p.AppliesMonday),
		AppliesTuesday:    orTrue(p.AppliesTuesday),
		AppliesWednesday:  orTrue(p.AppliesWednesday),
		AppliesThursday:   orTrue(p.AppliesThursday),
		AppliesFriday:     orTrue(p.AppliesFriday),
		AppliesSaturday:   orTrue(p.AppliesSaturday),
		AppliesSunday:     orTrue(p.AppliesSunday),
		MinNights:         minNights,
		MaxNights:         p.MaxNights,
		MinAdvanceBooking: p.MinAdvanceBooking,
		MaxAdvanceBooking: p.MaxAdvanceBooking,
		BlackoutDates:     datatypes.JSON(raw),
		Priority:          p.Priority,
		IsActive:          orTrue(p.IsActive),
	}, nil
}

func (ctrl *RateController) bindPlan(c *gin.Context) (*models.RatePlan, bool) {
	var payload ratePlanPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return nil, false
	}
	plan, err := payload.toModel()
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return plan, true
}

// GET /api/rates/resolve?room_type_id=&room_id=&check_in=&check_out=&rate_code=
func (ctrl *RateController) ResolveRate(c *gin.Context) {
	roomTypeID, err := queryID(c, "room_type_id")
	if err != nil {
		respondError(c, err)
		return
	}
	roomID, err := queryID(c, "room_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if roomTypeID == 0 && roomID == 0 {
		respondError(c, &engine.ValidationError{Field: "room_type_id", Message: "room_type_id or room_id is required"})
		return
	}
	in, err := engine.ParseDate("check_in", c.Query("check_in"))
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := engine.ParseDate("check_out", c.Query("check_out"))
	if err != nil {
		respondError(c, err)
		return
	}
	nightly, err := ctrl.RateSvc.ResolveRate(c.Request.Context(), services.RateQuery{
		RoomTypeID: roomTypeID,
		RoomID:     roomID,
		CheckIn:    in,
		CheckOut:   out,
		RateCode:   c.Query("rate_code"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	subtotal := decimal.Zero
	for _, n := range nightly {
		subtotal = subtotal.Add(n.Price)
	}
	c.JSON(http.StatusOK, gin.H{
		"nightly":  nightly,
		"subtotal": engine.Round2(subtotal).StringFixed(2),
	})
}

// GET /api/rate-plans?active=true
func (ctrl *RateController) GetPlans(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	plans, err := ctrl.RateSvc.ListPlans(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// POST /api/rate-plans
func (ctrl *RateController) CreatePlan(c *gin.Context) {
	plan, ok := ctrl.bindPlan(c)
	if !ok {
		return
	}
	if err := ctrl.RateSvc.CreatePlan(c.Request.Context(), plan); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// PUT /api/rate-plans/:id
func (ctrl *RateController) UpdatePlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	plan, ok := ctrl.bindPlan(c)
	if !ok {
		return
	}
	if err := ctrl.RateSvc.UpdatePlan(c.Request.Context(), id, plan); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DELETE /api/rate-plans/:id deactivates the plan.
func (ctrl *RateController) DeletePlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.RateSvc.DeletePlan(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"id": id, "isActive": false})
}

type roomRatePayload struct {
	RatePlanID    uint            `json:"ratePlanId" binding:"required"`
	RoomTypeID    uint            `json:"roomTypeId" binding:"required"`
	Price         decimal.Decimal `json:"price"`
	EffectiveFrom string          `json:"effectiveFrom" binding:"required"`
	EffectiveTo   string          `json:"effectiveTo"`
}

// GET /api/room-rates?rate_plan_id=&room_type_id=
func (ctrl *RateController) GetRoomRates(c *gin.Context) {
	planID, err := queryID(c, "rate_plan_id")
	if err != nil {
		respondError(c, err)
		return
	}
	roomTypeID, err := queryID(c, "room_type_id")
	if err != nil {
		respondError(c, err)
		return
	}
	rates, err := ctrl.RateSvc.ListRoomRates(c.Request.Context(), planID, roomTypeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// POST /api/room-rates
func (ctrl *RateController) CreateRoomRate(c *gin.Context) {
	var payload roomRatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	from, err := engine.ParseDate("effectiveFrom", payload.EffectiveFrom)
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := optionalDate("effectiveTo", payload.EffectiveTo)
	if err != nil {
		respondError(c, err)
		return
	}
	rate := &models.RoomRate{
		RatePlanID:    payload.RatePlanID,
		RoomTypeID:    payload.RoomTypeID,
		Price:         payload.Price,
		EffectiveFrom: from,
		EffectiveTo:   to,
	}
	if err := ctrl.RateSvc.CreateRoomRate(c.Request.Context(), rate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rate)
}

// DELETE /api/room-rates/:id
func (ctrl *RateController) DeleteRoomRate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.RateSvc.DeleteRoomRate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"id": id})
}
