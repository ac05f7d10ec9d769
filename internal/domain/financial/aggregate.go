package financial

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

// Totals is the income/expense rollup of a set of movements.
type Totals struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
	Count    int
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Income   string `json:"income"`
		Expenses string `json:"expenses"`
		Balance  string `json:"balance"`
		Count    int    `json:"count"`
	}{t.Income.StringFixed(2), t.Expenses.StringFixed(2), t.Balance.StringFixed(2), t.Count})
}

func (t *Totals) add(m *Movement) error {
	if err := ValidateAmount(m.Amount); err != nil {
		return fmt.Errorf("movement %s: %w", m.ID, err)
	}
	switch m.Direction {
	case DirectionIncome:
		t.Income = t.Income.Add(m.Amount)
	case DirectionExpense:
		t.Expenses = t.Expenses.Add(m.Amount)
	default:
		return fmt.Errorf("movement %s: unknown direction %q", m.ID, m.Direction)
	}
	t.Balance = t.Income.Sub(t.Expenses)
	t.Count++
	return nil
}

// Summarize totals movements by direction. A non-positive amount or an
// unknown direction fails the whole summary rather than being skipped.
func Summarize(movements []*Movement) (Totals, error) {
	var t Totals
	for _, m := range movements {
		if err := t.add(m); err != nil {
			return Totals{}, err
		}
	}
	return t, nil
}

// ParseAmount parses a positive money amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("amount must have at most two decimals")
	}
	return nil
}

// DayBucket is the rollup for one calendar date.
type DayBucket struct {
	Date   string `json:"date"`
	Totals Totals `json:"totals"`
}

// DailyBuckets groups movements per date from `from` through `to`. Every
// date in the range gets a bucket, including days without movements.
func DailyBuckets(zone *dateutil.Zone, movements []*Movement, from, to string) ([]DayBucket, error) {
	dates, err := zone.DatesBetween(from, to)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(dates))
	buckets := make([]DayBucket, len(dates))
	for i, d := range dates {
		buckets[i].Date = d
		index[d] = i
	}
	for _, m := range movements {
		i, ok := index[m.Date]
		if !ok {
			continue
		}
		if err := buckets[i].Totals.add(m); err != nil {
			return nil, err
		}
	}
	return buckets, nil
}
