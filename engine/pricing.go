package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceMode says whether nightly prices already include service tax. It is
// fixed on a booking when it is created.
type PriceMode string

const (
	Exclusive PriceMode = "exclusive"
	Inclusive PriceMode = "inclusive"
)

func ParsePriceMode(s string) (PriceMode, error) {
	switch PriceMode(s) {
	case Exclusive, Inclusive:
		return PriceMode(s), nil
	case "":
		return Exclusive, nil
	}
	return "", invalid("price_mode", "must be exclusive or inclusive, got %q", s)
}

type PriceInput struct {
	Nightly []decimal.Decimal
	Mode    PriceMode
	TaxRate decimal.Decimal
	// TourismTax, ExtraBedCharge and Discount are stay totals, not per night.
	TourismTax     decimal.Decimal
	ExtraBedCharge decimal.Decimal
	Discount       decimal.Decimal
	Currency       string
}

type Quote struct {
	Nights         int       `json:"nights"`
	Mode           PriceMode `json:"priceMode"`
	Subtotal       Money     `json:"subtotal"`
	Tax            Money     `json:"taxAmount"`
	TourismTax     Money     `json:"tourismTax"`
	ExtraBedCharge Money     `json:"extraBedCharge"`
	Discount       Money     `json:"discountAmount"`
	Total          Money     `json:"totalAmount"`
}

// PriceBooking totals a stay. Sums stay unrounded until the Quote is built;
// Total is the sum of the rounded components so stored columns add up exactly.
func PriceBooking(in PriceInput) (Quote, error) {
	mode := in.Mode
	if mode == "" {
		mode = Exclusive
	}
	if mode != Exclusive && mode != Inclusive {
		return Quote{}, invalid("price_mode", "unknown mode %q", mode)
	}
	if in.TaxRate.IsNegative() {
		return Quote{}, invalid("tax_rate", "must not be negative")
	}
	for name, v := range map[string]decimal.Decimal{
		"tourism_tax":      in.TourismTax,
		"extra_bed_charge": in.ExtraBedCharge,
		"discount":         in.Discount,
	} {
		if v.IsNegative() {
			return Quote{}, invalid(name, "must not be negative")
		}
	}

	gross := decimal.Zero
	for i, p := range in.Nightly {
		if p.IsNegative() {
			return Quote{}, invalid("nightly_price", "night %d has negative price %s", i+1, p.String())
		}
		gross = gross.Add(p)
	}

	var subtotal, tax decimal.Decimal
	one := decimal.NewFromInt(1)
	switch mode {
	case Exclusive:
		subtotal = Round2(gross)
		tax = Round2(gross.Mul(in.TaxRate))
	case Inclusive:
		roomCharge := gross.Div(one.Add(in.TaxRate))
		subtotal = Round2(roomCharge)
		tax = Round2(gross).Sub(subtotal)
	}
	tourism := Round2(in.TourismTax)
	extra := Round2(in.ExtraBedCharge)
	discount := Round2(in.Discount)

	charges := subtotal.Add(tax).Add(tourism).Add(extra)
	if discount.GreaterThan(charges) {
		return Quote{}, invalid("discount", "%s exceeds charges %s", discount.StringFixed(2), charges.StringFixed(2))
	}

	cur := in.Currency
	return Quote{
		Nights:         len(in.Nightly),
		Mode:           mode,
		Subtotal:       NewMoney(subtotal, cur),
		Tax:            NewMoney(tax, cur),
		TourismTax:     NewMoney(tourism, cur),
		ExtraBedCharge: NewMoney(extra, cur),
		Discount:       NewMoney(discount, cur),
		Total:          NewMoney(charges.Sub(discount), cur),
	}, nil
}

// PerNight multiplies a nightly amount across a stay, e.g. tourism tax or extra beds.
func PerNight(amount decimal.Decimal, units, nights int) decimal.Decimal {
	if units <= 0 || nights <= 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(int64(units * nights)))
}

func (q Quote) String() string {
	return fmt.Sprintf("%d nights %s: subtotal %s tax %s total %s", q.Nights, q.Mode, q.Subtotal, q.Tax, q.Total)
}
