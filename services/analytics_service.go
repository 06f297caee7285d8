package services

import (
	"context"
	"sort"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/metrics"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTopContentLimit = 10
	// EngagementWindow is the trailing window of the standalone engagement rate.
	EngagementWindow = 30 * 24 * time.Hour

	growthDateLayout = "2006-01-02"
)

var growthMetrics = []string{domain.MetricReach, domain.MetricImpressions}

// ComputeOverview aggregates the media published in window. Post and follower
// counts are floored to 1 so every rate is finite.
func ComputeOverview(followers int64, items []*domain.Media, window domain.DateRange) *domain.Overview {
	posts := len(items)
	if posts < 1 {
		posts = 1
	}
	if followers <= 0 {
		followers = 1
	}

	var engagement, reach, impressions int64
	for _, m := range items {
		engagement += m.Engagement()
		reach += m.ReachValue()
		impressions += m.ImpressionsValue()
	}

	out := &domain.Overview{
		PostsCount:                posts,
		FollowerCount:             followers,
		EngagementRateByFollowers: float64(engagement) / float64(followers*int64(posts)) * 100,
		AvgReach:                  float64(reach) / float64(posts),
		AvgImpressions:            float64(impressions) / float64(posts),
		PostingFrequencyPerWeek:   float64(posts) / window.Days() * 7,
	}
	if reach > 0 {
		out.EngagementRateByReach = float64(engagement) / float64(reach) * 100
	}
	return out
}

// RankTopContent orders items by per-item engagement over reach, keeping the
// input order of ties, and truncates to limit.
func RankTopContent(items []*domain.Media, limit int) []*domain.RankedMedia {
	if limit <= 0 {
		limit = DefaultTopContentLimit
	}

	ranked := make([]*domain.RankedMedia, 0, len(items))
	for _, m := range items {
		var rate float64
		if r := m.ReachValue(); r > 0 {
			rate = float64(m.Engagement()) / float64(r) * 100
		}
		ranked = append(ranked, &domain.RankedMedia{Media: m, EngagementRate: rate})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EngagementRate > ranked[j].EngagementRate
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// MergeGrowthSeries folds reach and impressions samples into one point per UTC
// day, ascending. Metrics without a sample for a day stay nil.
func MergeGrowthSeries(samples []*domain.Insight) []*domain.GrowthPoint {
	byDay := make(map[string]*domain.GrowthPoint)
	for _, s := range samples {
		day := s.Date.UTC().Format(growthDateLayout)
		point, ok := byDay[day]
		if !ok {
			point = &domain.GrowthPoint{Date: day}
			byDay[day] = point
		}

		v := s.Value
		switch s.Metric {
		case domain.MetricReach:
			point.Reach = &v
		case domain.MetricImpressions:
			point.Impressions = &v
		}
	}

	points := make([]*domain.GrowthPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// EngagementRateOf is the standalone rate: 0 without items, otherwise
// engagement over followers per post, or over total reach.
func EngagementRateOf(followers int64, items []*domain.Media, method domain.EngagementMethod) float64 {
	if len(items) == 0 {
		return 0
	}

	var engagement, reach int64
	for _, m := range items {
		engagement += m.Engagement()
		reach += m.ReachValue()
	}

	if method == domain.EngagementByReach {
		if reach == 0 {
			return 0
		}
		return float64(engagement) / float64(reach) * 100
	}

	if followers <= 0 {
		followers = 1
	}
	return float64(engagement) / float64(followers*int64(len(items))) * 100
}

// AnalyticsService computes derived metrics from stored media and insights.
// It never writes.
type AnalyticsService struct {
	accounts domain.AccountRepository
	media    domain.MediaRepository
	insights domain.InsightRepository
	now      func() time.Time
	logger   log.Logger
}

func NewAnalyticsService(accounts domain.AccountRepository, media domain.MediaRepository, insights domain.InsightRepository, logger log.Logger) *AnalyticsService {
	if logger == nil {
		logger = log.Nop()
	}
	return &AnalyticsService{
		accounts: accounts,
		media:    media,
		insights: insights,
		now:      time.Now,
		logger:   logger.With(log.Fields{"component": "analytics_service"}),
	}
}

// SetClock replaces the time source.
func (s *AnalyticsService) SetClock(now func() time.Time) {
	s.now = now
}

// observe records the duration of view and returns the function ending the span.
func (s *AnalyticsService) observe(ctx context.Context, view, accountID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "analytics."+view, attribute.String("account.id", accountID))
	return ctx, func(err error) {
		metrics.AnalyticsDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
		tracing.End(span, err)
	}
}

func checkWindow(window domain.DateRange) error {
	if !window.Valid() {
		return serrors.InvalidArgument("window starts after it ends")
	}
	return nil
}

func (s *AnalyticsService) Overview(ctx context.Context, accountID string, window domain.DateRange) (out *domain.Overview, err error) {
	ctx, done := s.observe(ctx, "overview", accountID)
	defer func() { done(err) }()

	if err := checkWindow(window); err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.overview(ctx, account, window)
}

func (s *AnalyticsService) overview(ctx context.Context, account *domain.ConnectedAccount, window domain.DateRange) (*domain.Overview, error) {
	items, err := s.media.ListMediaInRange(ctx, account.ID, window)
	if err != nil {
		return nil, err
	}
	return ComputeOverview(account.Followers(), items, window), nil
}

func (s *AnalyticsService) TopContent(ctx context.Context, accountID string, window domain.DateRange, limit int) (out []*domain.RankedMedia, err error) {
	ctx, done := s.observe(ctx, "top_content", accountID)
	defer func() { done(err) }()

	if err := checkWindow(window); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.topContent(ctx, accountID, window, limit)
}

func (s *AnalyticsService) topContent(ctx context.Context, accountID string, window domain.DateRange, limit int) ([]*domain.RankedMedia, error) {
	items, err := s.media.ListMediaInRange(ctx, accountID, window)
	if err != nil {
		return nil, err
	}
	return RankTopContent(items, limit), nil
}

func (s *AnalyticsService) GrowthSeries(ctx context.Context, accountID string, window domain.DateRange) (out []*domain.GrowthPoint, err error) {
	ctx, done := s.observe(ctx, "growth", accountID)
	defer func() { done(err) }()

	if err := checkWindow(window); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.growthSeries(ctx, accountID, window)
}

func (s *AnalyticsService) growthSeries(ctx context.Context, accountID string, window domain.DateRange) ([]*domain.GrowthPoint, error) {
	samples, err := s.insights.ListInsights(ctx, accountID, growthMetrics, window)
	if err != nil {
		return nil, err
	}
	return MergeGrowthSeries(samples), nil
}

// AudienceBreakdown returns the breakdown of the most recent demographic sample,
// or an empty map.
func (s *AnalyticsService) AudienceBreakdown(ctx context.Context, accountID string) (out domain.Breakdown, err error) {
	ctx, done := s.observe(ctx, "audience", accountID)
	defer func() { done(err) }()

	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.audience(ctx, accountID)
}

func (s *AnalyticsService) audience(ctx context.Context, accountID string) (domain.Breakdown, error) {
	latest, err := s.insights.LatestInsight(ctx, accountID, domain.AudienceMetrics)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Breakdown == nil {
		return domain.Breakdown{}, nil
	}
	return latest.Breakdown, nil
}

// EngagementRate computes the standalone rate over the trailing 30 days,
// independent of any caller window.
func (s *AnalyticsService) EngagementRate(ctx context.Context, accountID string, method domain.EngagementMethod) (rate float64, err error) {
	ctx, done := s.observe(ctx, "engagement_rate", accountID)
	defer func() { done(err) }()

	switch method {
	case domain.EngagementByFollowers, domain.EngagementByReach:
	default:
		return 0, serrors.InvalidArgument("unknown engagement method %q", method)
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	items, err := s.media.ListMediaSince(ctx, accountID, now.Add(-EngagementWindow), now)
	if err != nil {
		return 0, err
	}
	return EngagementRateOf(account.Followers(), items, method), nil
}

// Report computes overview, top content, growth and audience for window
// concurrently from the same account snapshot.
func (s *AnalyticsService) Report(ctx context.Context, accountID string, window domain.DateRange) (report *domain.AnalyticsReport, err error) {
	ctx, done := s.observe(ctx, "report", accountID)
	defer func() { done(err) }()

	if err := checkWindow(window); err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report = &domain.AnalyticsReport{
		AccountID: account.ID,
		Username:  account.Username,
		Window:    window,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Overview, err = s.overview(gctx, account, window)
		return err
	})
	g.Go(func() error {
		var err error
		report.TopContent, err = s.topContent(gctx, account.ID, window, DefaultTopContentLimit)
		return err
	})
	g.Go(func() error {
		var err error
		report.Growth, err = s.growthSeries(gctx, account.ID, window)
		return err
	})
	g.Go(func() error {
		var err error
		report.Audience, err = s.audience(gctx, account.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error(ctx, "Failed to compute analytics report", err, log.Fields{"account_id": accountID})
		return nil, err
	}
	return report, nil
}
