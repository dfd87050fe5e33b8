package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type HorizonKind string

const (
	HorizonNext7Days HorizonKind = "next7Days"
	HorizonMonthly   HorizonKind = "monthly"
)

const (
	next7DaysPeriodDays = 7
	monthlyPeriodDays   = 30
)

// Horizon is how far ahead a forecast projects: one 7-day period, or N
// consecutive 30-day periods.
type Horizon struct {
	Kind    HorizonKind `json:"kind"`
	Periods int         `json:"periods"`
}

func Next7Days() Horizon {
	return Horizon{Kind: HorizonNext7Days, Periods: 1}
}

func Monthly(periods int) Horizon {
	return Horizon{Kind: HorizonMonthly, Periods: periods}
}

// PeriodDays is the length of each projected period. The basis and prior
// windows have the same length.
func (h Horizon) PeriodDays() int {
	if h.Kind == HorizonNext7Days {
		return next7DaysPeriodDays
	}
	return monthlyPeriodDays
}

// Key is the canonical form used in cache keys and metric labels.
func (h Horizon) Key() string {
	if h.Kind == HorizonNext7Days {
		return string(HorizonNext7Days)
	}
	return fmt.Sprintf("%s:%d", HorizonMonthly, h.Periods)
}

func (h Horizon) String() string { return h.Key() }

func (h Horizon) Validate(maxMonthly int) error {
	switch h.Kind {
	case HorizonNext7Days:
		if h.Periods != 1 {
			return ErrInvalidHorizon
		}
		return nil
	case HorizonMonthly:
		if h.Periods < 1 || h.Periods > maxMonthly {
			return ErrInvalidMonths
		}
		return nil
	default:
		return ErrInvalidHorizon
	}
}

// ParseHorizon accepts "next7Days", "monthly" with months, or "monthly:N".
// months <= 0 means "not supplied".
func ParseHorizon(value string, months, defaultMonths, maxMonths int) (Horizon, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = string(HorizonMonthly)
	}

	kind, suffix, hasSuffix := strings.Cut(value, ":")
	switch {
	case strings.EqualFold(kind, string(HorizonNext7Days)):
		if hasSuffix {
			return Horizon{}, ErrInvalidHorizon
		}
		return Next7Days(), nil
	case strings.EqualFold(kind, string(HorizonMonthly)):
		periods := defaultMonths
		if hasSuffix {
			n, err := strconv.Atoi(strings.TrimSpace(suffix))
			if err != nil {
				return Horizon{}, ErrInvalidMonths
			}
			periods = n
		} else if months != 0 {
			periods = months
		}
		h := Monthly(periods)
		if err := h.Validate(maxMonths); err != nil {
			return Horizon{}, err
		}
		return h, nil
	default:
		return Horizon{}, ErrInvalidHorizon
	}
}
