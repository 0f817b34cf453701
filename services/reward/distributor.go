package reward

import (
	"context"
	"fmt"
	"time"

	"shareperk-engage/pkg/errutil"
	"shareperk-engage/services/campaign"
	"shareperk-engage/services/customer"
	"shareperk-engage/services/participation"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Distributor issues the configured reward and finalizes the participation
// in one database transaction. Either the grant, the wallet increment and
// the status change all commit, or none of them do.
type Distributor struct {
	db   *gorm.DB
	node *snowflake.Node
}

type DistributorParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewDistributor(p DistributorParams) *Distributor {
	return &Distributor{db: p.DB, node: p.Node}
}

// Distribute grants the campaign's reward for a passed verification.
// The participation must still be in verifying; the closing conditional
// update rolls the whole unit back when it is not, so a duplicate delivery
// can never double-grant.
func (d *Distributor) Distribute(ctx context.Context, p *participation.Participation, c *campaign.Campaign, cust *customer.Customer, verificationRecordID string) error {
	spec, err := c.RewardSpec()
	if err != nil {
		// misconfigured campaign; fail closed before touching state
		return fmt.Errorf("reward configuration invalid: %w", err)
	}

	var templateID string
	var points int64
	switch v := spec.(type) {
	case campaign.VoucherReward:
		templateID = v.TemplateID
	case campaign.PointsReward:
		points = v.Points
	case campaign.BothReward:
		templateID = v.TemplateID
		points = v.Points
	}

	grantID := d.node.Generate().String()

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grantRef *string

		if templateID != "" {
			grant := CustomerVoucherGrant{
				ID:                   grantID,
				CustomerID:           cust.ID,
				VoucherTemplateID:    templateID,
				CampaignID:           c.ID,
				ParticipationID:      p.ID,
				VerificationRecordID: verificationRecordID,
				Status:               GrantActive,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("failed to create voucher grant: %w", err)
			}
			grantRef = &grant.ID
		}

		if points > 0 {
			res := tx.Model(&customer.Customer{}).
				Where("id = ?", cust.ID).
				Updates(map[string]any{
					"points_balance": gorm.Expr("points_balance + ?", points),
					"points_earned":  gorm.Expr("points_earned + ?", points),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to credit points: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return errutil.NotFound("customer row vanished during reward")
			}
		}

		now := time.Now()
		res := tx.Model(&participation.Participation{}).
			Where("id = ? AND status = ?", p.ID, participation.StatusVerifying).
			Updates(map[string]any{
				"status":                participation.StatusRewarded,
				"voucher_grant_id":      grantRef,
				"rewarded_at":           now,
				"last_verified_at":      now,
				"verification_attempts": gorm.Expr("verification_attempts + 1"),
				"updated_at":            now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to finalize participation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errutil.Conflict("participation is no longer verifying")
		}

		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("reward distributed",
		zap.String("participation_id", p.ID),
		zap.String("campaign_id", c.ID),
		zap.String("customer_id", cust.ID),
		zap.Int64("points", points),
		zap.String("voucher_template_id", templateID),
	)
	return nil
}

var Module = fx.Module("reward.distributor",
	fx.Provide(NewDistributor),
)
