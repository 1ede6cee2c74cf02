package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// Summary aggregates the reconciliation of a whole roster.
type Summary struct {
	Rows          []Result
	TotalExpected decimal.Decimal
	TotalEarned   decimal.Decimal
	TotalPending  decimal.Decimal
	Percent       int
}

// Summarize reconciles every client and sums the totals. Percent is 0 when
// nothing is expected.
func Summarize(clients []model.Client, occurrences []model.Occurrence, today time.Time) Summary {
	byClient := make(map[string][]model.Occurrence, len(clients))
	for _, o := range occurrences {
		byClient[o.ClientID] = append(byClient[o.ClientID], o)
	}

	summary := Summary{
		Rows:          make([]Result, 0, len(clients)),
		TotalExpected: decimal.Zero,
		TotalEarned:   decimal.Zero,
	}
	for _, client := range clients {
		row := Reconcile(client, byClient[client.ID], today)
		summary.Rows = append(summary.Rows, row)
		summary.TotalExpected = summary.TotalExpected.Add(row.Expected)
		summary.TotalEarned = summary.TotalEarned.Add(row.Earned)
	}
	summary.TotalPending = summary.TotalExpected.Sub(summary.TotalEarned)
	summary.Percent = percent(summary.TotalEarned, summary.TotalExpected)
	return summary
}

// Row returns the result for clientID.
func (s Summary) Row(clientID string) (Result, bool) {
	for _, row := range s.Rows {
		if row.ClientID == clientID {
			return row, true
		}
	}
	return Result{}, false
}

// PlanTotals sums the rows of one plan.
type PlanTotals struct {
	Plan     model.Plan
	Clients  int
	Active   int
	Expected decimal.Decimal
	Earned   decimal.Decimal
}

// ByPlan splits the summary per billing plan, monthly first.
func (s Summary) ByPlan() []PlanTotals {
	totals := []PlanTotals{
		{Plan: model.PlanMonthly, Expected: decimal.Zero, Earned: decimal.Zero},
		{Plan: model.PlanPerSession, Expected: decimal.Zero, Earned: decimal.Zero},
	}
	for _, row := range s.Rows {
		idx := 0
		if row.Plan == model.PlanPerSession {
			idx = 1
		}
		totals[idx].Clients++
		if row.Active {
			totals[idx].Active++
		}
		totals[idx].Expected = totals[idx].Expected.Add(row.Expected)
		totals[idx].Earned = totals[idx].Earned.Add(row.Earned)
	}
	return totals
}

// DayRevenue is the per-session revenue booked on one day.
type DayRevenue struct {
	Date     calendar.Date
	Sessions int
	Revenue  decimal.Decimal
}

// DailyRevenue returns one entry per day of the inclusive window with the
// session count and the fees of per-session clients booked that day. Monthly
// clients count as sessions but add no revenue. A malformed window yields nil.
func DailyRevenue(clients []model.Client, occurrences []model.Occurrence, start, end calendar.Date) []DayRevenue {
	window := calendar.Range{Start: start, End: end}
	if window.Validate() != nil {
		return nil
	}

	fees := make(map[string]decimal.Decimal, len(clients))
	for _, client := range clients {
		if client.Plan == model.PlanPerSession {
			fees[client.ID] = client.Fee
		}
	}
	byDate := make(map[calendar.Date][]model.Occurrence)
	for _, o := range occurrences {
		if window.Contains(o.Date) {
			byDate[o.Date] = append(byDate[o.Date], o)
		}
	}

	out := make([]DayRevenue, 0, window.Len())
	for day := range window.Days() {
		entry := DayRevenue{Date: day, Revenue: decimal.Zero}
		for _, o := range byDate[day] {
			entry.Sessions++
			if fee, ok := fees[o.ClientID]; ok {
				entry.Revenue = entry.Revenue.Add(fee)
			}
		}
		out = append(out, entry)
	}
	return out
}

// Counts tallies the roster by status and plan.
type Counts struct {
	Active           int
	ActiveMonthly    int
	ActivePerSession int
	Inactive         int
}

// RosterCounts tallies clients for the roster overview.
func RosterCounts(clients []model.Client) Counts {
	var counts Counts
	for _, client := range clients {
		if !client.Active {
			counts.Inactive++
			continue
		}
		counts.Active++
		switch client.Plan {
		case model.PlanMonthly:
			counts.ActiveMonthly++
		case model.PlanPerSession:
			counts.ActivePerSession++
		}
	}
	return counts
}
