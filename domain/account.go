package domain

import "time"

// AccountType is the platform classification of a connected account.
type AccountType string

const (
	AccountTypeBusiness AccountType = "BUSINESS"
	AccountTypeCreator  AccountType = "CREATOR"
	AccountTypePersonal AccountType = "PERSONAL"
	AccountTypeUnknown  AccountType = "UNKNOWN"
)

// ParseAccountType maps a platform value onto a known type, UNKNOWN otherwise.
func ParseAccountType(s string) AccountType {
	switch t := AccountType(s); t {
	case AccountTypeBusiness, AccountTypeCreator, AccountTypePersonal:
		return t
	default:
		return AccountTypeUnknown
	}
}

// ConnectedAccount links a marketplace user to an Instagram professional account
// and holds the credentials used to read from the Graph API.
type ConnectedAccount struct {
	ID                string      `bson:"_id,omitempty" json:"id"`
	UserID            string      `bson:"user_id" json:"user_id"`
	PlatformAccountID string      `bson:"platform_account_id" json:"platform_account_id"`
	Username          string      `bson:"username" json:"username"`
	AccountType       AccountType `bson:"account_type" json:"account_type"`
	Biography         string      `bson:"biography,omitempty" json:"biography,omitempty"`
	ProfilePictureURL string      `bson:"profile_picture_url,omitempty" json:"profile_picture_url,omitempty"`
	FollowersCount    *int64      `bson:"followers_count,omitempty" json:"followers_count,omitempty"`
	FollowsCount      *int64      `bson:"follows_count,omitempty" json:"follows_count,omitempty"`
	MediaCount        *int64      `bson:"media_count,omitempty" json:"media_count,omitempty"`
	AccessToken       string      `bson:"access_token" json:"-"`
	LongLivedToken    string      `bson:"long_lived_token,omitempty" json:"-"`
	TokenExpiresAt    *time.Time  `bson:"token_expires_at,omitempty" json:"token_expires_at,omitempty"`
	LastSyncedAt      *time.Time  `bson:"last_synced_at,omitempty" json:"last_synced_at,omitempty"`
	CreatedAt         time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `bson:"updated_at" json:"updated_at"`
}

// Credential returns the token used for API calls: the long-lived one when
// present, the original access token otherwise.
func (a *ConnectedAccount) Credential() string {
	if a.LongLivedToken != "" {
		return a.LongLivedToken
	}
	return a.AccessToken
}

// NeedsRefresh reports whether the credential has no known expiry or expires
// within margin of now.
func (a *ConnectedAccount) NeedsRefresh(now time.Time, margin time.Duration) bool {
	if a.TokenExpiresAt == nil {
		return true
	}
	return a.TokenExpiresAt.Sub(now) < margin
}

// Followers returns the follower count, 0 when unknown.
func (a *ConnectedAccount) Followers() int64 {
	if a.FollowersCount == nil {
		return 0
	}
	return *a.FollowersCount
}

// AccountProfile is the profile snapshot written by a profile sync.
type AccountProfile struct {
	Username          string
	AccountType       AccountType
	Biography         string
	ProfilePictureURL string
	FollowersCount    *int64
	FollowsCount      *int64
	MediaCount        *int64
}
