package participation

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusRewarded  Status = "rewarded"
	StatusRejected  Status = "rejected"
)

// Participation is one customer's attempt to earn a campaign reward.
// Lifecycle: pending -> verifying -> rewarded|rejected. Terminal rows are
// never deleted; they are the audit trail.
type Participation struct {
	ID         string `gorm:"column:id;primaryKey;type:char(26)"`
	CampaignID string `gorm:"column:campaign_id;index;not null"`
	CustomerID string `gorm:"column:customer_id;index;not null"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`

	Status                  Status     `gorm:"column:status;type:varchar(20);index;not null;default:'pending'"`
	VerificationAttempts    int        `gorm:"column:verification_attempts;not null;default:0"`
	VerificationScheduledAt time.Time  `gorm:"column:verification_scheduled_at;index;not null"`
	LastVerifiedAt          *time.Time `gorm:"column:last_verified_at"`
	RejectionReason         string     `gorm:"column:rejection_reason;type:text"`
	VoucherGrantID          *string    `gorm:"column:voucher_grant_id"`
	RewardedAt              *time.Time `gorm:"column:rewarded_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PostID extracts the submitted post identifier from the metadata blob.
// Returns the empty string when the submission carried none.
func (p *Participation) PostID() string {
	if len(p.Metadata) == 0 {
		return ""
	}
	var meta struct {
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(p.Metadata, &meta); err != nil {
		return ""
	}
	return meta.PostID
}

// ShareVerificationRecord is the append-only log of one verification
// attempt. Records are created once and never mutated.
type ShareVerificationRecord struct {
	ID              string `gorm:"column:id;primaryKey;type:char(26)"`
	ParticipationID string `gorm:"column:participation_id;index;not null"`
	Attempt         int    `gorm:"column:attempt;not null"`

	PostExists  bool  `gorm:"column:post_exists;not null"`
	PostDeleted bool  `gorm:"column:post_deleted;not null"`
	Likes       int64 `gorm:"column:likes;not null;default:0"`
	Shares      int64 `gorm:"column:shares;not null;default:0"`
	Comments    int64 `gorm:"column:comments;not null;default:0"`

	Passed        bool           `gorm:"column:passed;not null"`
	FailureReason string         `gorm:"column:failure_reason;type:text"`
	RawResponse   datatypes.JSON `gorm:"column:raw_response;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
