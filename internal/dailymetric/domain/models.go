package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DailyMetric is the per-user, per-day rollup every aggregate is derived from.
type DailyMetric struct {
	ID                 snowflake.ID                  `gorm:"primaryKey" json:"id"`
	UserID             string                        `gorm:"column:user_id;type:varchar(128);not null;uniqueIndex:ux_daily_metrics_user_date,priority:1" json:"userId"`
	Date               time.Time                     `gorm:"column:metric_date;not null;uniqueIndex:ux_daily_metrics_user_date,priority:2" json:"date"`
	Revenue            float64                       `gorm:"not null;default:0" json:"revenue"`
	AdSpend            float64                       `gorm:"not null;default:0" json:"adSpend"`
	ShippingCost       float64                       `gorm:"not null;default:0" json:"shippingCost"`
	COGS               float64                       `gorm:"column:cogs;not null;default:0" json:"cogs"`
	TotalOrders        int64                         `gorm:"not null;default:0" json:"totalOrders"`
	NewCustomers       int64                         `gorm:"not null;default:0" json:"newCustomers"`
	ReturningCustomers int64                         `gorm:"not null;default:0" json:"returningCustomers"`
	Campaigns          datatypes.JSONSlice[Campaign] `json:"campaigns,omitempty"`
	Source             string                        `gorm:"type:varchar(64)" json:"source,omitempty"`
	CreatedAt          time.Time                     `gorm:"not null" json:"createdAt"`
	UpdatedAt          time.Time                     `gorm:"not null" json:"updatedAt"`
}

func (DailyMetric) TableName() string { return "daily_metrics" }

// Campaign is one ad campaign's activity on a single day.
type Campaign struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Sales       float64 `json:"sales"`
}

// NormalizeDay truncates t to midnight UTC, the storage granularity.
func NormalizeDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaySpan counts the calendar days in [start, end], inclusive.
func DaySpan(start, end time.Time) int {
	start = NormalizeDay(start)
	end = NormalizeDay(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
