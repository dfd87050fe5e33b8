package domain

import (
	"context"
	"errors"
	"time"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
)

// Snapshot is the compact business context handed to the chat model.
type Snapshot struct {
	UserID       string                        `json:"userId"`
	AsOf         time.Time                     `json:"asOf"`
	Last7Days    aggregation.AggregateSummary  `json:"last7Days"`
	Last30Days   aggregation.Comparison        `json:"last30Days"`
	TopCampaigns []aggregation.CampaignSummary `json:"topCampaigns"`
	GeneratedAt  time.Time                     `json:"generatedAt"`
	ExpiresAt    time.Time                     `json:"expiresAt"`
}

type AskRequest struct {
	UserID   string
	Question string
	Locale   string
	Currency string
}

type Answer struct {
	Answer         string    `json:"answer"`
	AIGenerated    bool      `json:"aiGenerated"`
	FallbackReason string    `json:"fallbackReason,omitempty"`
	Snapshot       *Snapshot `json:"snapshot,omitempty"`
}

type Service interface {
	Snapshot(ctx context.Context, userID string) (Snapshot, error)
	Ask(ctx context.Context, req AskRequest) (Answer, error)
	InvalidateUser(ctx context.Context, userID string) error
}

var (
	ErrInvalidUserID   = errors.New("invalid_user_id")
	ErrInvalidQuestion = errors.New("invalid_question")
)
