package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/pilab-dev/creator-insights/internal/metrics"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const syncAllAccountsConcurrency = 4

// ErrInvalidSyncType is returned by Sync for an unknown type.
var ErrInvalidSyncType = fmt.Errorf("%w: invalid sync type", serrors.ErrInvalidArgument)

// CredentialProvider hands out a usable credential for an account.
type CredentialProvider interface {
	EnsureValidCredential(ctx context.Context, accountID string) (string, error)
}

// GraphReader is the read side of the Graph API used by ingestion.
type GraphReader interface {
	FetchProfile(ctx context.Context, igUserID, token string) (*instagram.Profile, error)
	FetchMedia(ctx context.Context, igUserID, token string) ([]instagram.Media, error)
	FetchMediaInsights(ctx context.Context, mediaID, token string) (*instagram.MediaInsights, error)
	FetchInsights(ctx context.Context, igUserID, token string, metrics []string, period string) ([]instagram.InsightSeries, error)
}

// AccountSyncResult is the outcome of one account in SyncAllAccounts.
type AccountSyncResult struct {
	AccountID string            `json:"account_id"`
	Status    domain.SyncStatus `json:"status"`
	Error     string            `json:"error,omitempty"`
}

type syncStep func(ctx context.Context, account *domain.ConnectedAccount, token string) (int, error)

// SyncService pulls profile, media and insights from the platform into storage.
type SyncService struct {
	accounts      domain.AccountRepository
	media         domain.MediaRepository
	insights      domain.InsightRepository
	logs          domain.SyncLogRepository
	credentials   CredentialProvider
	graph         GraphReader
	mediaInsights bool
	now           func() time.Time
	logger        log.Logger
}

type SyncServiceOptions struct {
	// MediaInsights enables the per-item reach and impressions lookup.
	MediaInsights bool
	Logger        log.Logger
}

func NewSyncService(
	accounts domain.AccountRepository,
	media domain.MediaRepository,
	insights domain.InsightRepository,
	logs domain.SyncLogRepository,
	credentials CredentialProvider,
	graph GraphReader,
	opts SyncServiceOptions,
) *SyncService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &SyncService{
		accounts:      accounts,
		media:         media,
		insights:      insights,
		logs:          logs,
		credentials:   credentials,
		graph:         graph,
		mediaInsights: opts.MediaInsights,
		now:           time.Now,
		logger:        logger.With(log.Fields{"component": "sync_service"}),
	}
}

// SetClock replaces the time source.
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SyncService) SyncProfile(ctx context.Context, accountID string) (*domain.SyncLog, error) {
	return s.run(ctx, accountID, domain.SyncTypeProfile, s.syncProfile)
}

func (s *SyncService) SyncMedia(ctx context.Context, accountID string) (*domain.SyncLog, error) {
	return s.run(ctx, accountID, domain.SyncTypeMedia, s.syncMedia)
}

func (s *SyncService) SyncInsights(ctx context.Context, accountID string) (*domain.SyncLog, error) {
	return s.run(ctx, accountID, domain.SyncTypeInsights, s.syncInsights)
}

// SyncAll runs the profile, media and insights steps concurrently under a
// single log. The log is partial when some steps fail and failed when all do;
// the step errors are joined into the returned error.
func (s *SyncService) SyncAll(ctx context.Context, accountID string) (*domain.SyncLog, error) {
	return s.run(ctx, accountID, domain.SyncTypeAll, s.syncAll)
}

// Sync dispatches on the sync type.
func (s *SyncService) Sync(ctx context.Context, accountID string, typ domain.SyncType) (*domain.SyncLog, error) {
	switch typ {
	case domain.SyncTypeProfile:
		return s.SyncProfile(ctx, accountID)
	case domain.SyncTypeMedia:
		return s.SyncMedia(ctx, accountID)
	case domain.SyncTypeInsights:
		return s.SyncInsights(ctx, accountID)
	case domain.SyncTypeAll:
		return s.SyncAll(ctx, accountID)
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidSyncType, typ)
	}
}

// SyncAllAccounts runs SyncAll for every connected account. A failing account
// does not stop the others.
func (s *SyncService) SyncAllAccounts(ctx context.Context) ([]AccountSyncResult, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	results := make([]AccountSyncResult, len(accounts))
	g := new(errgroup.Group)
	g.SetLimit(syncAllAccountsConcurrency)
	for i, account := range accounts {
		g.Go(func() error {
			res := AccountSyncResult{AccountID: account.ID, Status: domain.SyncStatusSuccess}
			entry, err := s.SyncAll(ctx, account.ID)
			if entry != nil {
				res.Status = entry.Status
			}
			if err != nil {
				if entry == nil {
					res.Status = domain.SyncStatusFailed
				}
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info(ctx, "Scheduled sync finished", log.Fields{"accounts": len(accounts)})
	return results, nil
}

func (s *SyncService) run(ctx context.Context, accountID string, typ domain.SyncType, step syncStep) (entry *domain.SyncLog, err error) {
	runID := uuid.NewString()
	ctx, span := tracing.Start(ctx, "sync."+string(typ),
		attribute.String("account.id", accountID),
		attribute.String("sync.run_id", runID),
	)
	defer func() { tracing.End(span, err) }()

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fields := log.Fields{"account_id": accountID, "sync_type": typ, "run_id": runID}
	entry = &domain.SyncLog{
		AccountID: accountID,
		Type:      typ,
		Status:    domain.SyncStatusRunning,
		StartedAt: s.now().UTC(),
		Meta:      map[string]interface{}{"run_id": runID},
	}
	if err := s.logs.CreateSyncLog(ctx, entry); err != nil {
		return nil, err
	}

	token, err := s.credentials.EnsureValidCredential(ctx, accountID)
	if err != nil {
		s.finish(ctx, entry, 0, err, fields)
		return entry, err
	}

	written, err := step(ctx, account, token)
	s.finish(ctx, entry, written, err, fields)
	return entry, err
}

func (s *SyncService) finish(ctx context.Context, entry *domain.SyncLog, written int, err error, fields log.Fields) {
	finished := s.now().UTC()
	entry.FinishedAt = &finished
	entry.Meta["written"] = written

	var partial *partialSyncError
	switch {
	case err == nil:
		entry.Status = domain.SyncStatusSuccess
	case errors.As(err, &partial):
		entry.Status = domain.SyncStatusPartial
		entry.ErrorMessage = err.Error()
	default:
		entry.Status = domain.SyncStatusFailed
		entry.ErrorMessage = err.Error()
	}

	metrics.SyncRunsTotal.WithLabelValues(string(entry.Type), string(entry.Status)).Inc()
	metrics.SyncItemsWrittenTotal.WithLabelValues(string(entry.Type)).Add(float64(written))

	if err != nil {
		s.logger.Warn(ctx, "Sync run did not complete", fields, log.Fields{"status": entry.Status, "written": written, "error": err.Error()})
	} else {
		s.logger.Info(ctx, "Sync run finished", fields, log.Fields{"written": written})
	}

	// The run outcome stands even when the log update fails.
	if ferr := s.logs.FinishSyncLog(context.WithoutCancel(ctx), entry); ferr != nil {
		s.logger.Error(ctx, "Failed to finish sync log", ferr, fields)
	}
}

func (s *SyncService) syncProfile(ctx context.Context, account *domain.ConnectedAccount, token string) (int, error) {
	p, err := s.graph.FetchProfile(ctx, account.PlatformAccountID, token)
	if err != nil {
		return 0, err
	}
	err = s.accounts.UpdateProfile(ctx, account.ID, domain.AccountProfile{
		Username:          p.Username,
		AccountType:       domain.ParseAccountType(p.AccountType),
		Biography:         p.Biography,
		ProfilePictureURL: p.ProfilePictureURL,
		FollowersCount:    p.FollowersCount,
		FollowsCount:      p.FollowsCount,
		MediaCount:        p.MediaCount,
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *SyncService) syncMedia(ctx context.Context, account *domain.ConnectedAccount, token string) (int, error) {
	items, err := s.graph.FetchMedia(ctx, account.PlatformAccountID, token)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, item := range items {
		m := &domain.Media{
			AccountID:     account.ID,
			MediaID:       item.ID,
			MediaType:     domain.ParseMediaType(item.MediaType),
			MediaURL:      item.MediaURL,
			ThumbnailURL:  item.ThumbnailURL,
			Permalink:     item.Permalink,
			Caption:       item.Caption,
			LikeCount:     item.LikeCount,
			CommentsCount: item.CommentsCount,
			Timestamp:     item.PublishedAt(),
		}
		if s.mediaInsights {
			s.attachMediaInsights(ctx, m, token)
		}
		if err := s.media.UpsertMedia(ctx, m); err != nil {
			return written, fmt.Errorf("upsert media %s: %w", item.ID, err)
		}
		written++
	}

	if err := s.accounts.MarkSynced(ctx, account.ID, s.now()); err != nil {
		return written, err
	}
	return written, nil
}

// attachMediaInsights fills reach and impressions. A failed lookup leaves them
// absent so stored values are kept.
func (s *SyncService) attachMediaInsights(ctx context.Context, m *domain.Media, token string) {
	ins, err := s.graph.FetchMediaInsights(ctx, m.MediaID, token)
	if err != nil {
		s.logger.Debug(ctx, "Media insights unavailable", log.Fields{"media_id": m.MediaID, "error": err.Error()})
		return
	}
	m.Reach = ins.Reach
	m.Impressions = ins.Impressions
	if ins.Saved != nil {
		m.SavedCount = *ins.Saved
	}
	if ins.Shares != nil {
		m.ShareCount = *ins.Shares
	}
	at := s.now().UTC()
	m.InsightsAt = &at
}

func (s *SyncService) syncInsights(ctx context.Context, account *domain.ConnectedAccount, token string) (int, error) {
	series, err := s.graph.FetchInsights(ctx, account.PlatformAccountID, token, instagram.AccountInsightMetrics, string(domain.PeriodDay))
	if err != nil {
		return 0, err
	}

	written := 0
	for _, metric := range series {
		period := domain.Period(metric.Period)
		if period == "" {
			period = domain.PeriodDay
		}
		for _, v := range metric.Values {
			value, breakdown, err := v.Decode()
			if err != nil {
				s.logger.Warn(ctx, "Skipping undecodable insight value", log.Fields{"metric": metric.Name, "error": err.Error()})
				continue
			}
			date, err := instagram.ParseGraphTime(v.EndTime)
			if err != nil {
				s.logger.Warn(ctx, "Skipping insight value without end_time", log.Fields{"metric": metric.Name})
				continue
			}
			err = s.insights.UpsertInsight(ctx, &domain.Insight{
				AccountID: account.ID,
				Metric:    metric.Name,
				Period:    period,
				Value:     value,
				Breakdown: breakdown,
				Date:      date,
			})
			if err != nil {
				return written, fmt.Errorf("upsert insight %s: %w", metric.Name, err)
			}
			written++
		}
	}
	return written, nil
}

func (s *SyncService) syncAll(ctx context.Context, account *domain.ConnectedAccount, token string) (int, error) {
	steps := []struct {
		typ  domain.SyncType
		step syncStep
	}{
		{domain.SyncTypeProfile, s.syncProfile},
		{domain.SyncTypeMedia, s.syncMedia},
		{domain.SyncTypeInsights, s.syncInsights},
	}

	var (
		mu      sync.Mutex
		written int
		failed  []error
		wg      sync.WaitGroup
	)
	for _, st := range steps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := st.step(ctx, account, token)
			mu.Lock()
			defer mu.Unlock()
			written += n
			if err != nil {
				failed = append(failed, fmt.Errorf("%s: %w", st.typ, err))
			}
		}()
	}
	wg.Wait()

	switch {
	case len(failed) == 0:
		return written, nil
	case len(failed) == len(steps):
		return written, errors.Join(failed...)
	default:
		return written, &partialSyncError{errors.Join(failed...)}
	}
}

type partialSyncError struct {
	err error
}

func (e *partialSyncError) Error() string { return "partial sync: " + e.err.Error() }

func (e *partialSyncError) Unwrap() error { return e.err }
