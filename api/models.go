// Package api holds the request and response bodies of the HTTP API.
package api

import (
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	"github.com/pilab-dev/creator-insights/services"
)

// AccountRequest is the body of account-scoped POST routes.
type AccountRequest struct {
	InstagramAccountID string `json:"instagramAccountId"`
}

// AccountSummary is one entry of the connected accounts listing.
type AccountSummary struct {
	ID                string             `json:"id"`
	Username          string             `json:"username"`
	AccountType       domain.AccountType `json:"accountType"`
	ProfilePictureURL string             `json:"profilePictureUrl,omitempty"`
	FollowersCount    *int64             `json:"followersCount,omitempty"`
	TokenExpiresAt    *time.Time         `json:"tokenExpiresAt,omitempty"`
	LastSyncedAt      *time.Time         `json:"lastSyncedAt,omitempty"`
}

// NewAccountSummary copies the listable fields of a; credentials never leave the service.
func NewAccountSummary(a *domain.ConnectedAccount) AccountSummary {
	return AccountSummary{
		ID:                a.ID,
		Username:          a.Username,
		AccountType:       a.AccountType,
		ProfilePictureURL: a.ProfilePictureURL,
		FollowersCount:    a.FollowersCount,
		TokenExpiresAt:    a.TokenExpiresAt,
		LastSyncedAt:      a.LastSyncedAt,
	}
}

// SyncResponse reports the outcome of a sync run.
type SyncResponse struct {
	Success bool            `json:"success"`
	Log     *domain.SyncLog `json:"log"`
}

// RefreshResponse reports a manual credential refresh.
type RefreshResponse struct {
	Success        bool       `json:"success"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

// ExportAccount identifies the account in an analytics export.
type ExportAccount struct {
	Username       string             `json:"username"`
	FollowersCount *int64             `json:"followersCount,omitempty"`
	AccountType    domain.AccountType `json:"accountType"`
}

// ExportPeriod is the window an export covers.
type ExportPeriod struct {
	Days      int       `json:"days"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// ExportDocument is the JSON analytics export.
type ExportDocument struct {
	Account      ExportAccount         `json:"account"`
	Period       ExportPeriod          `json:"period"`
	Metrics      *domain.Overview      `json:"metrics"`
	TopMedia     []*domain.RankedMedia `json:"topMedia"`
	GrowthSeries []*domain.GrowthPoint `json:"growthSeries"`
	Demographics domain.Breakdown      `json:"demographics"`
	ExportedAt   time.Time             `json:"exportedAt"`
}

// CronSyncResponse lists the per-account outcome of a triggered sync.
type CronSyncResponse struct {
	Success bool                         `json:"success"`
	Results []services.AccountSyncResult `json:"results"`
}
