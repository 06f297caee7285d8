package instagram

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// TokenResponse is the body of every oauth/access_token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Lifetime returns expires_in as a duration.
func (t *TokenResponse) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// BusinessAccount is the Instagram professional account attached to a Facebook Page.
type BusinessAccount struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	Biography         string `json:"biography"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    *int64 `json:"followers_count"`
	FollowsCount      *int64 `json:"follows_count"`
}

type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	AccountType       string `json:"account_type"`
	Biography         string `json:"biography"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    *int64 `json:"followers_count"`
	FollowsCount      *int64 `json:"follows_count"`
	MediaCount        *int64 `json:"media_count"`
}

type Media struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	MediaURL      string `json:"media_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
}

// PublishedAt parses the Graph timestamp; the zero time is returned when it is malformed.
func (m *Media) PublishedAt() time.Time {
	t, _ := ParseGraphTime(m.Timestamp)
	return t
}

// MediaInsights are the per-item counters; absent metrics stay nil.
type MediaInsights struct {
	Reach       *int64
	Impressions *int64
	Saved       *int64
	Shares      *int64
}

// InsightSeries is one metric returned by the account insights edge.
type InsightSeries struct {
	Name   string         `json:"name"`
	Period string         `json:"period"`
	Values []InsightValue `json:"values"`
}

// InsightValue holds either a scalar or a breakdown map.
type InsightValue struct {
	Raw     json.RawMessage `json:"value"`
	EndTime string          `json:"end_time"`
}

// Decode returns the scalar value and, for breakdown metrics, the map. The
// scalar of a breakdown is the sum of its values.
func (v InsightValue) Decode() (float64, map[string]float64, error) {
	var scalar float64
	if err := json.Unmarshal(v.Raw, &scalar); err == nil {
		return scalar, nil, nil
	}
	var breakdown map[string]float64
	if err := json.Unmarshal(v.Raw, &breakdown); err != nil {
		return 0, nil, err
	}
	var sum float64
	for _, n := range breakdown {
		sum += n
	}
	return sum, breakdown, nil
}

var graphTimeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// ParseGraphTime parses the timestamp formats used by the Graph API.
func ParseGraphTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range graphTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

type paging struct {
	Next string `json:"next"`
}

type mediaPage struct {
	Data   []Media `json:"data"`
	Paging *paging `json:"paging"`
}

type insightsPage struct {
	Data []InsightSeries `json:"data"`
}

type pagesResponse struct {
	Data []struct {
		ID                       string           `json:"id"`
		InstagramBusinessAccount *BusinessAccount `json:"instagram_business_account"`
	} `json:"data"`
}
