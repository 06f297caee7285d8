package domain

import "time"

// Period is the aggregation period of an account-level metric sample.
type Period string

const (
	PeriodDay      Period = "day"
	PeriodWeek     Period = "week"
	PeriodDays28   Period = "days_28"
	PeriodLifetime Period = "lifetime"
)

// Metric names stored by the insights sync and read by analytics.
const (
	MetricImpressions       = "impressions"
	MetricReach             = "reach"
	MetricSaved             = "saved"
	MetricEngagement        = "engagement"
	MetricAudienceGenderAge = "audience_gender_age"
	MetricAudienceCity      = "audience_city"
	MetricAudienceCountry   = "audience_country"
)

// AudienceMetrics are the metrics whose samples carry a demographic breakdown.
var AudienceMetrics = []string{MetricAudienceGenderAge, MetricAudienceCity, MetricAudienceCountry}

// Breakdown maps a demographic key (for example "F.25-34" or "Budapest, Hungary")
// to its share or count.
type Breakdown map[string]float64

// Sum adds up all values of the breakdown.
func (b Breakdown) Sum() float64 {
	var total float64
	for _, v := range b {
		total += v
	}
	return total
}

// Insight is one account-level metric sample for a day and period.
// Samples are unique per account, metric, date and period.
type Insight struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	AccountID string    `bson:"account_id" json:"account_id"`
	Metric    string    `bson:"metric" json:"metric"`
	Period    Period    `bson:"period" json:"period"`
	Value     float64   `bson:"value" json:"value"`
	Breakdown Breakdown `bson:"breakdown,omitempty" json:"breakdown,omitempty"`
	Date      time.Time `bson:"date" json:"date"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
