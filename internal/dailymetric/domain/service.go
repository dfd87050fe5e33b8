package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type MetricInput struct {
	Date               time.Time  `json:"date"`
	Revenue            float64    `json:"revenue"`
	AdSpend            float64    `json:"adSpend"`
	ShippingCost       float64    `json:"shippingCost"`
	COGS               float64    `json:"cogs"`
	TotalOrders        int64      `json:"totalOrders"`
	NewCustomers       int64      `json:"newCustomers"`
	ReturningCustomers int64      `json:"returningCustomers"`
	Campaigns          []Campaign `json:"campaigns,omitempty"`
}

type IngestRequest struct {
	UserID string
	Source string
	Rows   []MetricInput
}

type IngestResult struct {
	UserID    string    `json:"userId"`
	Upserted  int       `json:"upserted"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

type DeleteRequest struct {
	UserID string
	Start  time.Time
	End    time.Time
}

type Service interface {
	FindByUserAndRange(ctx context.Context, userID string, start, end time.Time) ([]DailyMetric, error)
	CountByUserAndRange(ctx context.Context, userID string, start, end time.Time) (int64, error)
	Ingest(ctx context.Context, req IngestRequest) (IngestResult, error)
	Delete(ctx context.Context, req DeleteRequest) (int64, error)
}

// Invalidator drops derived state for a user after their rows change.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

var (
	ErrInvalidUserID   = errors.New("invalid_user_id")
	ErrInvalidRange    = errors.New("invalid_range")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrEmptyBatch      = errors.New("invalid_rows")
	ErrDuplicateDate   = errors.New("duplicate_date")
	ErrNegativeValue   = errors.New("negative_value")
	ErrNonFiniteValue  = errors.New("non_finite_value")
	ErrBatchTooLarge   = errors.New("batch_too_large")
	ErrInvalidCampaign = errors.New("invalid_campaign")
)

// FieldError names the offending input field for data-quality failures.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *FieldError) Unwrap() error { return e.Err }

func NewFieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
