package domain

import "time"

type SyncType string

const (
	SyncTypeProfile  SyncType = "profile"
	SyncTypeMedia    SyncType = "media"
	SyncTypeInsights SyncType = "insights"
	SyncTypeAll      SyncType = "all"
)

// ParseSyncType validates a sync type name.
func ParseSyncType(s string) (SyncType, bool) {
	switch t := SyncType(s); t {
	case SyncTypeProfile, SyncTypeMedia, SyncTypeInsights, SyncTypeAll:
		return t, true
	default:
		return "", false
	}
}

type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncLog records one ingestion run for an account.
type SyncLog struct {
	ID           string                 `bson:"_id,omitempty" json:"id"`
	AccountID    string                 `bson:"account_id" json:"account_id"`
	Type         SyncType               `bson:"type" json:"type"`
	Status       SyncStatus             `bson:"status" json:"status"`
	StartedAt    time.Time              `bson:"started_at" json:"started_at"`
	FinishedAt   *time.Time             `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	ErrorMessage string                 `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Meta         map[string]interface{} `bson:"meta,omitempty" json:"meta,omitempty"`
}
