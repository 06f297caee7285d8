package domain

import "time"

// MediaType is the content type of a published item.
type MediaType string

const (
	MediaTypeImage    MediaType = "IMAGE"
	MediaTypeVideo    MediaType = "VIDEO"
	MediaTypeCarousel MediaType = "CAROUSEL_ALBUM"
	MediaTypeReel     MediaType = "REEL"
	MediaTypeStory    MediaType = "STORY"
	MediaTypeUnknown  MediaType = "UNKNOWN"
)

// ParseMediaType maps a platform media type onto a known type. Unrecognised
// values become UNKNOWN rather than failing ingestion.
func ParseMediaType(s string) MediaType {
	switch t := MediaType(s); t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeCarousel, MediaTypeReel, MediaTypeStory:
		return t
	default:
		return MediaTypeUnknown
	}
}

// Media is one published content item with its engagement counters.
// Reach and Impressions stay nil when the platform did not report them.
type Media struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	AccountID     string     `bson:"account_id" json:"account_id"`
	MediaID       string     `bson:"media_id" json:"media_id"`
	MediaType     MediaType  `bson:"media_type" json:"media_type"`
	MediaURL      string     `bson:"media_url,omitempty" json:"media_url,omitempty"`
	ThumbnailURL  string     `bson:"thumbnail_url,omitempty" json:"thumbnail_url,omitempty"`
	Permalink     string     `bson:"permalink,omitempty" json:"permalink,omitempty"`
	Caption       string     `bson:"caption,omitempty" json:"caption,omitempty"`
	LikeCount     int64      `bson:"like_count" json:"like_count"`
	CommentsCount int64      `bson:"comments_count" json:"comments_count"`
	ShareCount    int64      `bson:"share_count,omitempty" json:"share_count,omitempty"`
	SavedCount    int64      `bson:"saved_count,omitempty" json:"saved_count,omitempty"`
	Reach         *int64     `bson:"reach,omitempty" json:"reach,omitempty"`
	Impressions   *int64     `bson:"impressions,omitempty" json:"impressions,omitempty"`
	Timestamp     time.Time  `bson:"timestamp" json:"timestamp"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
	InsightsAt    *time.Time `bson:"insights_at,omitempty" json:"-"`
}

// Engagement is likes plus comments.
func (m *Media) Engagement() int64 {
	return m.LikeCount + m.CommentsCount
}

// ReachValue returns reach, 0 when absent.
func (m *Media) ReachValue() int64 {
	if m.Reach == nil {
		return 0
	}
	return *m.Reach
}

// ImpressionsValue returns impressions, 0 when absent.
func (m *Media) ImpressionsValue() int64 {
	if m.Impressions == nil {
		return 0
	}
	return *m.Impressions
}
