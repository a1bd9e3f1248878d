// Package loan implements the home-loan EMI amortization math.
package loan

import (
	"errors"
	"math"
)

var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidTenure    = errors.New("tenure must be at least one month")
	ErrInvalidRate      = errors.New("annual rate must not be negative")
)

// Installment is one month of the repayment schedule.
type Installment struct {
	Month     int     `json:"month"`
	EMI       float64 `json:"emi"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// Monthly returns the equated monthly installment for a principal,
// an annual percentage rate, and a tenure in months:
//
//	E = P * r * (1+r)^n / ((1+r)^n - 1)
//
// where r is the monthly rate. A zero rate degenerates to straight-line
// repayment.
func Monthly(principal, annualRate float64, months int) (float64, error) {
	switch {
	case principal <= 0:
		return 0, ErrInvalidPrincipal
	case months < 1:
		return 0, ErrInvalidTenure
	case annualRate < 0:
		return 0, ErrInvalidRate
	}

	if annualRate == 0 {
		return round2(principal / float64(months)), nil
	}

	r := annualRate / 12 / 100
	factor := math.Pow(1+r, float64(months))
	emi := principal * r * factor / (factor - 1)
	return round2(emi), nil
}

// Schedule returns the full amortization table. The final balance is
// clamped to zero to absorb rounding drift.
func Schedule(principal, annualRate float64, months int) ([]Installment, error) {
	emi, err := Monthly(principal, annualRate, months)
	if err != nil {
		return nil, err
	}

	r := annualRate / 12 / 100
	balance := principal
	schedule := make([]Installment, 0, months)
	for m := 1; m <= months; m++ {
		interest := round2(balance * r)
		repaid := round2(emi - interest)
		balance = round2(balance - repaid)
		if m == months || balance < 0 {
			balance = 0
		}
		schedule = append(schedule, Installment{
			Month:     m,
			EMI:       emi,
			Principal: repaid,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return schedule, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
