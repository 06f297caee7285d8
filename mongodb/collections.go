package mongodb

const (
	AccountsCollection = "connected_accounts"
	MediaCollection    = "media"
	InsightsCollection = "insights"
	SyncLogsCollection = "sync_logs"
	ProfilesCollection = "influencer_profiles"
)
