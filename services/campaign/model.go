package campaign

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

type RewardType string

const (
	RewardVoucher RewardType = "voucher"
	RewardPoints  RewardType = "points"
	RewardBoth    RewardType = "both"
)

// Campaign defines the rules of a social-share promotion. Campaigns are
// owned by the admin surface; this pipeline reads them and must not assume
// they were validated at entry time.
type Campaign struct {
	ID          string     `gorm:"column:id;primaryKey;type:char(26)"`
	Name        string     `gorm:"column:name;type:varchar(255);not null"`
	Description string     `gorm:"column:description;type:text"`
	Status      Status     `gorm:"column:status;type:varchar(20);not null;default:'draft'"`
	StartAt     *time.Time `gorm:"column:start_at"`
	EndAt       *time.Time `gorm:"column:end_at"`

	RewardType        RewardType `gorm:"column:reward_type;type:varchar(20);not null"`
	VoucherTemplateID *string    `gorm:"column:voucher_template_id"`
	RewardPoints      int64      `gorm:"column:reward_points;not null;default:0"`

	MinLikes    int64 `gorm:"column:min_likes;not null;default:0"`
	MinShares   int64 `gorm:"column:min_shares;not null;default:0"`
	MinComments int64 `gorm:"column:min_comments;not null;default:0"`

	VerificationDelayHours int    `gorm:"column:verification_delay_hours;not null;default:24"`
	MaxParticipations      *int64 `gorm:"column:max_participations"`
	MaxPerCustomer         *int64 `gorm:"column:max_per_customer"`

	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Thresholds is the minimum engagement a post must reach to pass.
type Thresholds struct {
	MinLikes    int64 `json:"min_likes"`
	MinShares   int64 `json:"min_shares"`
	MinComments int64 `json:"min_comments"`
}

func (c *Campaign) Thresholds() Thresholds {
	return Thresholds{
		MinLikes:    c.MinLikes,
		MinShares:   c.MinShares,
		MinComments: c.MinComments,
	}
}

// RewardSpec is the closed set of reward configurations. Resolving the
// stored reward_type plus its payload through this union surfaces a
// misconfigured campaign as an error instead of a nil dereference later.
type RewardSpec interface {
	isRewardSpec()
}

type VoucherReward struct {
	TemplateID string
}

type PointsReward struct {
	Points int64
}

type BothReward struct {
	TemplateID string
	Points     int64
}

func (VoucherReward) isRewardSpec() {}
func (PointsReward) isRewardSpec()  {}
func (BothReward) isRewardSpec()    {}

// RewardSpec resolves the campaign's reward configuration into its variant.
func (c *Campaign) RewardSpec() (RewardSpec, error) {
	switch c.RewardType {
	case RewardVoucher:
		if c.VoucherTemplateID == nil || *c.VoucherTemplateID == "" {
			return nil, fmt.Errorf("campaign %s declares voucher reward without a voucher template", c.ID)
		}
		return VoucherReward{TemplateID: *c.VoucherTemplateID}, nil
	case RewardPoints:
		if c.RewardPoints <= 0 {
			return nil, fmt.Errorf("campaign %s declares points reward without a positive point amount", c.ID)
		}
		return PointsReward{Points: c.RewardPoints}, nil
	case RewardBoth:
		if c.VoucherTemplateID == nil || *c.VoucherTemplateID == "" {
			return nil, fmt.Errorf("campaign %s declares voucher reward without a voucher template", c.ID)
		}
		if c.RewardPoints <= 0 {
			return nil, fmt.Errorf("campaign %s declares points reward without a positive point amount", c.ID)
		}
		return BothReward{TemplateID: *c.VoucherTemplateID, Points: c.RewardPoints}, nil
	default:
		return nil, fmt.Errorf("campaign %s has unknown reward type %q", c.ID, c.RewardType)
	}
}
