package customer

import "time"

// Customer carries only the wallet fields this pipeline touches. The full
// customer profile is owned by the CRM surface.
type Customer struct {
	ID            string    `gorm:"column:id;primaryKey;type:char(26)"`
	Email         string    `gorm:"column:email;index"`
	PointsBalance int64     `gorm:"column:points_balance;not null;default:0"`
	PointsEarned  int64     `gorm:"column:points_earned;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
