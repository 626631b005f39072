// This file implements the Strategy Pattern for recurring payment cadences.
// Each cadence knows which intervals it accepts and how to project the next
// occurrence from the last one.

package services

import (
	"fmt"
	"time"

	"moneymind/internal/core"
)

const day = 24 * time.Hour

// CadenceStrategy recognizes one payment frequency.
type CadenceStrategy interface {
	// Matches reports whether a median interval fits this cadence.
	Matches(interval time.Duration) bool
	// Next projects the occurrence after last. anchor is the first
	// occurrence and fixes the day of month for calendar cadences.
	Next(last, anchor core.Date) core.Date
}

type intervalRange struct{ min, max time.Duration }

func (r intervalRange) Matches(interval time.Duration) bool {
	return interval >= r.min && interval <= r.max
}

// WeeklyStrategy accepts 5 to 9 day intervals.
type WeeklyStrategy struct{ intervalRange }

func (WeeklyStrategy) Next(last, _ core.Date) core.Date { return last.AddDays(7) }

// BiweeklyStrategy accepts 12 to 16 day intervals.
type BiweeklyStrategy struct{ intervalRange }

func (BiweeklyStrategy) Next(last, _ core.Date) core.Date { return last.AddDays(14) }

// MonthlyStrategy accepts 26 to 35 day intervals and keeps the anchor's
// day of month, clamped to the month length.
type MonthlyStrategy struct{ intervalRange }

func (MonthlyStrategy) Next(last, anchor core.Date) core.Date {
	return addMonthsClamped(last, anchor.Day(), 1)
}

// QuarterlyStrategy accepts 80 to 100 day intervals.
type QuarterlyStrategy struct{ intervalRange }

func (QuarterlyStrategy) Next(last, anchor core.Date) core.Date {
	return addMonthsClamped(last, anchor.Day(), 3)
}

// YearlyStrategy accepts 350 to 380 day intervals.
type YearlyStrategy struct{ intervalRange }

func (YearlyStrategy) Next(last, anchor core.Date) core.Date {
	return addMonthsClamped(last, anchor.Day(), 12)
}

// addMonthsClamped moves d forward by n months landing on targetDay, or on
// the last day of the month when targetDay does not exist (e.g. Feb 31).
func addMonthsClamped(d core.Date, targetDay, n int) core.Date {
	first := time.Date(d.Year(), time.Month(d.Month()+n), 1, 0, 0, 0, 0, time.UTC)
	lastDayOfMonth := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return core.NewDate(first.Year(), int(first.Month()), targetDay)
}

// cadenceOrder is the classification order; ranges do not overlap.
var cadenceOrder = []core.Cadence{
	core.CadenceWeekly,
	core.CadenceBiweekly,
	core.CadenceMonthly,
	core.CadenceQuarterly,
	core.CadenceYearly,
}

var cadenceStrategies = map[core.Cadence]CadenceStrategy{
	core.CadenceWeekly:    WeeklyStrategy{intervalRange{5 * day, 9 * day}},
	core.CadenceBiweekly:  BiweeklyStrategy{intervalRange{12 * day, 16 * day}},
	core.CadenceMonthly:   MonthlyStrategy{intervalRange{26 * day, 35 * day}},
	core.CadenceQuarterly: QuarterlyStrategy{intervalRange{80 * day, 100 * day}},
	core.CadenceYearly:    YearlyStrategy{intervalRange{350 * day, 380 * day}},
}

// GetCadenceStrategy returns the strategy registered for a cadence.
func GetCadenceStrategy(c core.Cadence) (CadenceStrategy, error) {
	s, ok := cadenceStrategies[c]
	if !ok {
		return nil, fmt.Errorf("unknown cadence: %s", c)
	}
	return s, nil
}

// ClassifyCadence maps a median interval to a cadence, or CadenceIrregular.
func ClassifyCadence(interval time.Duration) core.Cadence {
	for _, c := range cadenceOrder {
		if cadenceStrategies[c].Matches(interval) {
			return c
		}
	}
	return core.CadenceIrregular
}
