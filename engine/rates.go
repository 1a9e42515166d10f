package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotel-booking-engine/models"
)

// BaseRateCode marks nights priced at the plain base price.
const BaseRateCode = "BASE"

const (
	SourceRoomRate   = "room_rate"
	SourceAdjustment = "adjustment"
	SourceBase       = "base"
)

var planSpecificity = map[string]int{
	models.PlanPromotional: 5,
	models.PlanPackage:     4,
	models.PlanCorporate:   3,
	models.PlanSeasonal:    2,
	models.PlanStandard:    1,
}

type RateRequest struct {
	RoomTypeID uint
	CheckIn    time.Time
	CheckOut   time.Time
	// RateCode restricts resolution to one plan. Empty means best plan per night.
	RateCode string
	// BookedOn is the booking creation date, used when the advance anchor is booking_date.
	BookedOn time.Time
	Today    time.Time
}

// NightlyPrice is the resolved, tax-exclusive price of one night.
type NightlyPrice struct {
	Date          time.Time       `json:"date"`
	RatePlanID    uint            `json:"ratePlanId,omitempty"`
	RateCode      string          `json:"rateCode"`
	RatePlanName  string          `json:"ratePlanName,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Source        string          `json:"source"`
	Clamped       bool            `json:"clamped,omitempty"`
	Complimentary bool            `json:"complimentary,omitempty"`
}

func (n NightlyPrice) MarshalJSON() ([]byte, error) {
	type alias NightlyPrice
	return json.Marshal(struct {
		alias
		Date  string `json:"date"`
		Price string `json:"price"`
	}{alias(n), FormatDate(n.Date), n.Price.StringFixed(2)})
}

func (n *NightlyPrice) UnmarshalJSON(b []byte) error {
	type alias NightlyPrice
	var raw struct {
		alias
		Date  string          `json:"date"`
		Price decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*n = NightlyPrice(raw.alias)
	d, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	n.Date, n.Price = d, raw.Price
	return nil
}

// Prices extracts the per-night amounts in stay order.
func Prices(nightly []NightlyPrice) []decimal.Decimal {
	out := make([]decimal.Decimal, len(nightly))
	for i, n := range nightly {
		out[i] = n.Price
	}
	return out
}

type candidate struct {
	plan     models.RatePlan
	blackout map[string]bool
}

// ResolveRates picks a plan and a price for every night of the stay. The
// result is a pure function of its inputs.
func ResolveRates(req RateRequest, plans []models.RatePlan, rates []models.RoomRate, base decimal.Decimal, cfg Settings) ([]NightlyPrice, error) {
	if err := ValidateStay(req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}
	if base.IsNegative() {
		return nil, invalid("base_price", "must not be negative")
	}
	code := strings.ToUpper(strings.TrimSpace(req.RateCode))
	nights := StayDates(req.CheckIn, req.CheckOut)

	if code == BaseRateCode {
		out := make([]NightlyPrice, len(nights))
		for i, d := range nights {
			out[i] = baseNight(d, base)
		}
		return out, nil
	}

	cands := make([]candidate, 0, len(plans))
	found := code == ""
	for _, p := range plans {
		if code != "" && !strings.EqualFold(p.Code, code) {
			continue
		}
		found = true
		bl, err := parseBlackout(p.BlackoutDates)
		if err != nil {
			return nil, invalid("blackout_dates", "rate plan %s: %v", p.Code, err)
		}
		cands = append(cands, candidate{plan: p, blackout: bl})
	}
	if !found {
		return nil, &RateResolutionError{Reason: ReasonNoApplicablePlan, Detail: fmt.Sprintf("unknown rate code %q", req.RateCode)}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].plan, cands[j].plan
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if sa, sb := planSpecificity[a.PlanType], planSpecificity[b.PlanType]; sa != sb {
			return sa > sb
		}
		return a.ID < b.ID
	})

	out := make([]NightlyPrice, 0, len(nights))
	selected := map[uint]models.RatePlan{}
	for _, d := range nights {
		var winner *candidate
		var row *models.RoomRate
		for i := range cands {
			c := &cands[i]
			if !planApplies(c, d, req, cfg) {
				continue
			}
			r := effectiveRoomRate(rates, c.plan.ID, req.RoomTypeID, d)
			if c.plan.AdjustmentType == models.AdjustOverride && r == nil {
				continue
			}
			winner, row = c, r
			break
		}
		if winner == nil {
			if code == "" && cfg.AllowBaseRateFallback {
				out = append(out, baseNight(d, base))
				continue
			}
			detail := "no active rate plan covers this night"
			if code != "" {
				detail = fmt.Sprintf("rate plan %s does not apply", code)
			}
			return nil, &RateResolutionError{Reason: ReasonNoApplicablePlan, Date: d, Detail: detail}
		}
		selected[winner.plan.ID] = winner.plan
		out = append(out, priceNight(d, winner.plan, row, base))
	}

	n := len(nights)
	ids := make([]uint, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p := selected[id]
		minN := p.MinNights
		if minN < 1 {
			minN = 1
		}
		if n < minN {
			return nil, &RateResolutionError{Reason: ReasonStayLength, Detail: fmt.Sprintf("rate plan %s requires at least %d nights, stay has %d", p.Code, minN, n)}
		}
		if p.MaxNights != nil && n > *p.MaxNights {
			return nil, &RateResolutionError{Reason: ReasonStayLength, Detail: fmt.Sprintf("rate plan %s allows at most %d nights, stay has %d", p.Code, *p.MaxNights, n)}
		}
	}
	return out, nil
}

func baseNight(d time.Time, base decimal.Decimal) NightlyPrice {
	return NightlyPrice{Date: d, RateCode: BaseRateCode, Price: base, Source: SourceBase}
}

func priceNight(d time.Time, p models.RatePlan, row *models.RoomRate, base decimal.Decimal) NightlyPrice {
	np := NightlyPrice{Date: d, RatePlanID: p.ID, RateCode: p.Code, RatePlanName: p.Name}
	if row != nil {
		np.Price, np.Source = row.Price, SourceRoomRate
		return np
	}
	np.Source = SourceAdjustment
	switch p.AdjustmentType {
	case models.AdjustFixed:
		np.Price = base.Add(p.AdjustmentValue)
	case models.AdjustPercentage:
		np.Price = base.Mul(decimal.NewFromInt(1).Add(p.AdjustmentValue.Div(decimal.NewFromInt(100))))
	default:
		np.Price = base
	}
	if np.Price.IsNegative() {
		np.Price, np.Clamped = decimal.Zero, true
	}
	return np
}

func planApplies(c *candidate, d time.Time, req RateRequest, cfg Settings) bool {
	p := c.plan
	if !p.IsActive {
		return false
	}
	if p.ValidFrom != nil && d.Before(DateOf(*p.ValidFrom)) {
		return false
	}
	if p.ValidTo != nil && d.After(DateOf(*p.ValidTo)) {
		return false
	}
	if !p.AppliesOn(d.Weekday()) {
		return false
	}
	if c.blackout[FormatDate(d)] {
		return false
	}
	adv := advanceDays(d, req, cfg)
	if adv < p.MinAdvanceBooking {
		return false
	}
	if p.MaxAdvanceBooking != nil && adv > *p.MaxAdvanceBooking {
		return false
	}
	return true
}

// advanceDays measures night d from today, or the check-in from the booking
// date when the booking_date anchor is configured.
func advanceDays(d time.Time, req RateRequest, cfg Settings) int {
	if cfg.AdvanceAnchor == AnchorBookingDate {
		booked := req.BookedOn
		if booked.IsZero() {
			booked = req.Today
		}
		return NightsBetween(booked, req.CheckIn)
	}
	return NightsBetween(req.Today, d)
}

// effectiveRoomRate returns the latest row for the plan and room type that
// covers d.
func effectiveRoomRate(rates []models.RoomRate, planID, roomTypeID uint, d time.Time) *models.RoomRate {
	var best *models.RoomRate
	for i := range rates {
		r := &rates[i]
		if r.RatePlanID != planID || r.RoomTypeID != roomTypeID {
			continue
		}
		if d.Before(DateOf(r.EffectiveFrom)) {
			continue
		}
		if r.EffectiveTo != nil && d.After(DateOf(*r.EffectiveTo)) {
			continue
		}
		if best == nil || r.EffectiveFrom.After(best.EffectiveFrom) ||
			(r.EffectiveFrom.Equal(best.EffectiveFrom) && r.ID > best.ID) {
			best = r
		}
	}
	return best
}

func parseBlackout(raw []byte) (map[string]bool, error) {
	out := map[string]bool{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	var dates []string
	if err := json.Unmarshal(raw, &dates); err != nil {
		return nil, err
	}
	for _, s := range dates {
		t, err := time.Parse(DateLayout, strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out[FormatDate(t)] = true
	}
	return out, nil
}
