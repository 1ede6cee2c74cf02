// Package billing reconciles occurrences against each client's billing plan.
package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// LowBalanceThreshold is the number of remaining sessions at or below which a
// per-session client is flagged for renewal.
const LowBalanceThreshold = 2

var hundred = decimal.NewFromInt(100)

// Result is the reconciliation of one client over one period.
type Result struct {
	ClientID   string
	ClientName string
	Plan       model.Plan
	Active     bool
	Fee        decimal.Decimal
	Expected   decimal.Decimal
	Earned     decimal.Decimal
	Total      int
	Done       int
	Pending    int
}

// IsRealized reports whether o counts as a delivered session at today: either
// explicitly completed or starting strictly before today's wall clock.
func IsRealized(o model.Occurrence, today time.Time) bool {
	return o.Completed || o.Start().Before(calendar.Wall(today))
}

// Reconcile computes expected and earned revenue for client from the given
// occurrences. Occurrences of other clients are ignored.
func Reconcile(client model.Client, occurrences []model.Occurrence, today time.Time) Result {
	result := Result{
		ClientID:   client.ID,
		ClientName: client.Name,
		Plan:       client.Plan,
		Active:     client.Active,
		Fee:        client.Fee,
	}
	for _, o := range occurrences {
		if o.ClientID != client.ID {
			continue
		}
		result.Total++
		if IsRealized(o, today) {
			result.Done++
		} else {
			result.Pending++
		}
	}

	switch client.Plan {
	case model.PlanPerSession:
		result.Earned = client.Fee.Mul(decimal.NewFromInt(int64(result.Done)))
		if client.Active {
			result.Expected = client.Fee.Mul(decimal.NewFromInt(int64(result.Total)))
		} else {
			result.Expected = result.Earned
		}
	default:
		if client.Active {
			result.Earned = client.Fee
			result.Expected = client.Fee
		} else {
			result.Earned = decimal.Zero
			result.Expected = decimal.Zero
		}
	}
	return result
}

// Percent is the share of expected revenue already earned, rounded to a whole
// percentage. A monthly client with nothing expected reads as fully settled.
func (r Result) Percent() int {
	if !r.Expected.IsPositive() {
		if r.Plan == model.PlanMonthly {
			return 100
		}
		return 0
	}
	return percent(r.Earned, r.Expected)
}

// Outstanding is the amount still owed for the period. Monthly clients owe the
// whole fee until marked paid.
func (r Result) Outstanding() decimal.Decimal {
	if r.Plan == model.PlanMonthly {
		return r.Fee
	}
	owed := r.Expected.Sub(r.Earned)
	if owed.IsNegative() {
		return decimal.Zero
	}
	return owed
}

// LowBalance reports a per-session client with few sessions left in the period.
func (r Result) LowBalance() bool {
	return r.Plan == model.PlanPerSession && r.Pending <= LowBalanceThreshold
}

func percent(part, whole decimal.Decimal) int {
	if !whole.IsPositive() {
		return 0
	}
	return int(part.Mul(hundred).Div(whole).Round(0).IntPart())
}
