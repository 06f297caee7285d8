package ginapi

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/creator-insights/api"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/middleware"
)

// AccountsHandler lists the accounts connected by the caller.
func (a *API) AccountsHandler(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	accounts, err := a.opts.Accounts.ListForUser(c.Request.Context(), actor.ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]api.AccountSummary, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, api.NewAccountSummary(acc))
	}
	c.JSON(http.StatusOK, out)
}

// report resolves the caller's account and window and computes the analytics report.
func (a *API) report(c *gin.Context) (*domain.ConnectedAccount, *domain.AnalyticsReport, int, error) {
	accountID := c.Query("instagramAccountId")
	if accountID == "" {
		return nil, nil, 0, serrors.InvalidArgument("instagramAccountId is required")
	}
	days, err := parseDays(c)
	if err != nil {
		return nil, nil, 0, err
	}

	ctx := c.Request.Context()
	account, err := a.opts.Accounts.OwnedAccount(ctx, middleware.ActorFrom(c), accountID)
	if err != nil {
		return nil, nil, 0, err
	}
	report, err := a.opts.Analytics.Report(ctx, account.ID, domain.LastDays(a.now().UTC(), days))
	if err != nil {
		return nil, nil, 0, err
	}
	return account, report, days, nil
}

// OverviewHandler returns overview, top content, growth and audience for the last N days.
func (a *API) OverviewHandler(c *gin.Context) {
	_, report, _, err := a.report(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportHandler returns the analytics report as a JSON document or a CSV attachment.
func (a *API) ExportHandler(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		a.fail(c, serrors.InvalidArgument("invalid format %q", format))
		return
	}

	account, report, days, err := a.report(c)
	if err != nil {
		a.fail(c, err)
		return
	}

	if format == "json" {
		c.JSON(http.StatusOK, api.ExportDocument{
			Account: api.ExportAccount{
				Username:       account.Username,
				FollowersCount: account.FollowersCount,
				AccountType:    account.AccountType,
			},
			Period: api.ExportPeriod{
				Days:      days,
				StartDate: report.Window.From,
				EndDate:   report.Window.To,
			},
			Metrics:      report.Overview,
			TopMedia:     report.TopContent,
			GrowthSeries: report.Growth,
			Demographics: report.Audience,
			ExportedAt:   a.now().UTC(),
		})
		return
	}

	filename := fmt.Sprintf("analytics-%s-%s.csv", account.Username, a.now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.WriteAll(overviewRows(report.Overview))
}

func overviewRows(o *domain.Overview) [][]string {
	f := func(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }
	return [][]string{
		{"Metric", "Value"},
		{"Followers", strconv.FormatInt(o.FollowerCount, 10)},
		{"Engagement Rate (Followers)", f(o.EngagementRateByFollowers, 2) + "%"},
		{"Engagement Rate (Reach)", f(o.EngagementRateByReach, 2) + "%"},
		{"Average Reach", f(o.AvgReach, 0)},
		{"Average Impressions", f(o.AvgImpressions, 0)},
		{"Total Posts", strconv.Itoa(o.PostsCount)},
		{"Posting Frequency (per week)", f(o.PostingFrequencyPerWeek, 2)},
	}
}

// bindAccount reads the instagramAccountId body field and checks ownership.
func (a *API) bindAccount(c *gin.Context) (*domain.ConnectedAccount, error) {
	var req api.AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InstagramAccountID == "" {
		return nil, serrors.InvalidArgument("instagramAccountId is required")
	}
	return a.opts.Accounts.OwnedAccount(c.Request.Context(), middleware.ActorFrom(c), req.InstagramAccountID)
}

// SyncHandler runs a profile, media, insights or all sync for one of the caller's accounts.
func (a *API) SyncHandler(c *gin.Context) {
	typ, ok := domain.ParseSyncType(c.Param("type"))
	if !ok {
		a.fail(c, serrors.InvalidArgument("unknown sync type %q", c.Param("type")))
		return
	}
	account, err := a.bindAccount(c)
	if err != nil {
		a.fail(c, err)
		return
	}

	entry, err := a.opts.Sync.Sync(c.Request.Context(), account.ID, typ)
	if entry == nil {
		a.fail(c, err)
		return
	}

	status := http.StatusOK
	if entry.Status == domain.SyncStatusFailed {
		status, _ = serrors.ToAPIError(err)
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
	}
	c.JSON(status, api.SyncResponse{Success: entry.Status != domain.SyncStatusFailed, Log: entry})
}

// RefreshHandler renews the long-lived credential of one of the caller's accounts.
func (a *API) RefreshHandler(c *gin.Context) {
	account, err := a.bindAccount(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	refreshed, err := a.opts.Tokens.ForceRefresh(c.Request.Context(), account.ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.RefreshResponse{Success: true, TokenExpiresAt: refreshed.TokenExpiresAt})
}
