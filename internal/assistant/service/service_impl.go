package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	aggregation "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	"github.com/smallbiznis/pulseboard/internal/assistant/domain"
	"github.com/smallbiznis/pulseboard/internal/clock"
	"github.com/smallbiznis/pulseboard/internal/config"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
	"github.com/smallbiznis/pulseboard/internal/forecast/delegated"
	"github.com/smallbiznis/pulseboard/internal/presentation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxQuestionLength = 2000
	topCampaigns      = 3
)

const assistantPrompt = `You are a concise analyst for a small online business.
Answer the owner's question using only the JSON context provided.
Amounts are in %s. Keep the answer under 120 words.`

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	AppConfig   config.Config
	Config      *config.ForecastConfigHolder
	Aggregation aggregation.Service
	Chat        delegated.Completer `name:"assistant.chat" optional:"true"`
	Snapshots   *SnapshotCache      `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	appCfg      config.Config
	cfg         *config.ForecastConfigHolder
	aggregation aggregation.Service
	chat        delegated.Completer
	snapshots   *SnapshotCache
}

func NewService(p Params) domain.Service {
	snapshots := p.Snapshots
	if snapshots == nil {
		snapshots = NewSnapshotCache(p.Clock)
	}
	return &Service{
		log:         p.Log.Named("assistant.service"),
		clock:       p.Clock,
		appCfg:      p.AppConfig,
		cfg:         p.Config,
		aggregation: p.Aggregation,
		chat:        p.Chat,
		snapshots:   snapshots,
	}
}

func (s *Service) Snapshot(ctx context.Context, userID string) (domain.Snapshot, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Snapshot{}, domain.ErrInvalidUserID
	}

	now := s.clock.Now()
	if snap, ok := s.snapshots.entries.Get(userID); ok && now.Before(snap.ExpiresAt) {
		return snap, nil
	}

	asOf := clock.Yesterday(s.clock)
	last7 := aggregation.Request{UserID: userID, Start: asOf.AddDate(0, 0, -6), End: asOf}
	last30 := aggregation.Request{UserID: userID, Start: asOf.AddDate(0, 0, -29), End: asOf}

	snap := domain.Snapshot{UserID: userID, AsOf: asOf}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Last7Days, err = s.aggregation.Aggregate(gctx, last7)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Last30Days, err = s.aggregation.Compare(gctx, last30)
		return err
	})
	g.Go(func() error {
		campaigns, err := s.aggregation.Campaigns(gctx, last30)
		if len(campaigns) > topCampaigns {
			campaigns = campaigns[:topCampaigns]
		}
		snap.TopCampaigns = campaigns
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	ttl := s.cfg.Get().SnapshotTTL
	snap.GeneratedAt = now
	snap.ExpiresAt = now.Add(ttl)
	s.snapshots.entries.Set(userID, snap, ttl)
	return snap, nil
}

// Ask answers from the chat model when it is reachable and from a
// deterministic summary otherwise. Only validation errors are returned.
func (s *Service) Ask(ctx context.Context, req domain.AskRequest) (domain.Answer, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return domain.Answer{}, domain.ErrInvalidUserID
	}
	question := strings.TrimSpace(req.Question)
	if question == "" || utf8.RuneCountInString(question) > maxQuestionLength {
		return domain.Answer{}, domain.ErrInvalidQuestion
	}

	f, err := s.formatter(req)
	if err != nil {
		return domain.Answer{}, err
	}

	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		s.log.Warn("assistant snapshot failed", zap.String("user_id", userID), zap.Error(err))
		return domain.Answer{
			Answer:         "Your business data is not available right now. Please try again shortly.",
			FallbackReason: "snapshot_unavailable",
		}, nil
	}

	if s.chat == nil {
		return domain.Answer{Answer: summarize(f, snap), Snapshot: &snap}, nil
	}

	answer, err := s.askModel(ctx, f, snap, question)
	if err != nil {
		reason := forecastdomain.ReasonCode(err)
		s.log.Warn("assistant model unavailable, answering with summary",
			zap.String("user_id", userID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return domain.Answer{Answer: summarize(f, snap), FallbackReason: reason, Snapshot: &snap}, nil
	}
	return domain.Answer{Answer: answer, AIGenerated: true, Snapshot: &snap}, nil
}

func (s *Service) InvalidateUser(ctx context.Context, userID string) error {
	return s.snapshots.InvalidateUser(ctx, userID)
}

func (s *Service) formatter(req domain.AskRequest) (*presentation.Formatter, error) {
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = s.appCfg.DefaultLocale
	}
	cur := strings.TrimSpace(req.Currency)
	if cur == "" {
		cur = s.appCfg.DefaultCurrency
	}
	return presentation.NewFormatter(locale, cur)
}

func (s *Service) askModel(ctx context.Context, f *presentation.Formatter, snap domain.Snapshot, question string) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, config.ClampDelegatedTimeout(s.cfg.Get().DelegatedTimeout))
	defer cancel()

	answer, err := s.chat.Complete(ctx, []delegated.Message{
		{Role: "system", Content: fmt.Sprintf(assistantPrompt, f.Currency())},
		{Role: "system", Content: string(payload)},
		{Role: "user", Content: question},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func summarize(f *presentation.Formatter, snap domain.Snapshot) string {
	cur := snap.Last30Days.Current
	if !cur.HasData {
		return "There is no sales data for the last 30 days yet. Import your daily metrics to get insights."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In the last 30 days you made %s in revenue from %s orders, with ROAS %s and net profit %s (%s margin).",
		f.Money(cur.Revenue), f.Count(float64(cur.TotalOrders)), f.Ratio(cur.ROAS), f.Money(cur.NetProfit), f.Percent(cur.NetProfitMargin))

	if g := snap.Last30Days.Growth["revenue"]; g != nil {
		fmt.Fprintf(&b, " Revenue changed %s versus the previous 30 days.", f.SignedPercent(*g))
	}
	if last7 := snap.Last7Days; last7.HasData {
		fmt.Fprintf(&b, " The last 7 days brought %s.", f.Money(last7.Revenue))
	}
	if len(snap.TopCampaigns) > 0 {
		top := snap.TopCampaigns[0]
		fmt.Fprintf(&b, " Your biggest campaign, %s, spent %s at %s ROAS.", campaignLabel(top), f.Money(top.Spend), f.Ratio(top.ROAS))
	}
	return b.String()
}

func campaignLabel(c aggregation.CampaignSummary) string {
	for _, v := range []string{c.Name, c.ID, c.Key} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "unnamed"
}
