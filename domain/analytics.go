package domain

import "time"

// DateRange is an inclusive time window.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LastDays returns the window of the given number of days ending at now.
func LastDays(now time.Time, days int) DateRange {
	return DateRange{From: now.AddDate(0, 0, -days), To: now}
}

// Days is the window length in days, never less than 1.
func (r DateRange) Days() float64 {
	days := r.To.Sub(r.From).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// Valid reports whether From is not after To.
func (r DateRange) Valid() bool {
	return !r.From.After(r.To)
}

// Overview is the aggregate performance of an account over a window.
type Overview struct {
	PostsCount                int     `json:"posts_count"`
	FollowerCount             int64   `json:"follower_count"`
	EngagementRateByFollowers float64 `json:"engagement_rate_by_followers"`
	EngagementRateByReach     float64 `json:"engagement_rate_by_reach"`
	AvgReach                  float64 `json:"avg_reach"`
	AvgImpressions            float64 `json:"avg_impressions"`
	PostingFrequencyPerWeek   float64 `json:"posting_frequency_per_week"`
}

// RankedMedia is a media item with its per-item engagement rate.
type RankedMedia struct {
	*Media
	EngagementRate float64 `json:"engagement_rate"`
}

// GrowthPoint merges the reach and impressions samples of one UTC day.
// A metric without a sample for the day stays nil.
type GrowthPoint struct {
	Date        string   `json:"date"`
	Reach       *float64 `json:"reach,omitempty"`
	Impressions *float64 `json:"impressions,omitempty"`
}

// EngagementMethod selects the denominator of the standalone engagement rate.
type EngagementMethod string

const (
	EngagementByFollowers EngagementMethod = "followers"
	EngagementByReach     EngagementMethod = "reach"
)

// AnalyticsReport bundles everything the analytics dashboard shows for a window.
type AnalyticsReport struct {
	AccountID  string         `json:"account_id"`
	Username   string         `json:"username"`
	Window     DateRange      `json:"window"`
	Overview   *Overview      `json:"overview"`
	TopContent []*RankedMedia `json:"top_content"`
	Growth     []*GrowthPoint `json:"growth"`
	Audience   Breakdown      `json:"audience"`
}
