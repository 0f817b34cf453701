package reward

import "time"

type GrantStatus string

const (
	GrantActive GrantStatus = "active"
)

// CustomerVoucherGrant is created exactly once per rewarded participation.
// The unique index on participation_id backs the at-most-one-grant
// invariant at the storage layer as well.
type CustomerVoucherGrant struct {
	ID                   string      `gorm:"column:id;primaryKey;type:char(26)"`
	CustomerID           string      `gorm:"column:customer_id;index;not null"`
	VoucherTemplateID    string      `gorm:"column:voucher_template_id;not null"`
	CampaignID           string      `gorm:"column:campaign_id;index;not null"`
	ParticipationID      string      `gorm:"column:participation_id;uniqueIndex;not null"`
	VerificationRecordID string      `gorm:"column:verification_record_id;not null"`
	Status               GrantStatus `gorm:"column:status;type:varchar(20);not null;default:'active'"`
	CreatedAt            time.Time   `gorm:"column:created_at;autoCreateTime"`
}
