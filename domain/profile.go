package domain

import "time"

// InfluencerProfile is the marketplace profile of an influencer user.
// Approved is owned by moderation, IsPublic by the influencer.
type InfluencerProfile struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	DisplayName  string    `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Bio          string    `bson:"bio,omitempty" json:"bio,omitempty"`
	Category     string    `bson:"category,omitempty" json:"category,omitempty"`
	Location     string    `bson:"location,omitempty" json:"location,omitempty"`
	Languages    []string  `bson:"languages,omitempty" json:"languages,omitempty"`
	ContactEmail string    `bson:"contact_email,omitempty" json:"contact_email,omitempty"`
	Website      string    `bson:"website,omitempty" json:"website,omitempty"`
	IsPublic     bool      `bson:"is_public" json:"is_public"`
	Approved     bool      `bson:"approved" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Visibility holds the three independently owned flags that decide whether
// a profile may be shown to brands.
type Visibility struct {
	Approved            bool
	IsPublic            bool
	HasConnectedAccount bool
}

// Visible is true only when all three flags hold.
func (v Visibility) Visible() bool {
	return v.Approved && v.IsPublic && v.HasConnectedAccount
}

// ProfileFilter narrows a profile listing. Empty fields do not filter.
type ProfileFilter struct {
	Category string
	Location string
	Limit    int
}
