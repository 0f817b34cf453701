package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shareperk-engage/pkg/config"
	"shareperk-engage/pkg/db"
	"shareperk-engage/pkg/logger"
	"shareperk-engage/services/campaign"
	"shareperk-engage/services/customer"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/reward"
)

var (
	shareURL   = flag.String("share-url", "https://www.facebook.com/demo.user/posts/10158796543210123", "share link to submit for the seeded participation")
	customerID = flag.String("customer-id", "", "existing customer to submit as; created when empty")
	delayHours = flag.Int("delay-hours", 1, "verification delay in hours for the seeded campaign")
)

// Local development helper: migrates the schema and creates one active
// campaign plus a pending participation the scheduler can pick up.
func main() {
	flag.Parse()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		fx.Provide(provideSnowflakeNode),
		campaign.Module,
		participation.Module,
		fx.Invoke(seed),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

type seedParams struct {
	fx.In

	DB             *gorm.DB
	Node           *snowflake.Node
	Campaigns      *campaign.Service
	Participations *participation.Service
	Shutdowner     fx.Shutdowner
}

func seed(p seedParams) error {
	ctx := context.Background()

	if err := p.DB.AutoMigrate(
		&campaign.Campaign{},
		&customer.Customer{},
		&participation.Participation{},
		&participation.ShareVerificationRecord{},
		&reward.CustomerVoucherGrant{},
	); err != nil {
		return err
	}

	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)
	c := &campaign.Campaign{
		Name:                   "Share & Win",
		Description:            "Share our launch post, keep it public, earn points.",
		Status:                 campaign.StatusActive,
		StartAt:                &now,
		EndAt:                  &end,
		RewardType:             campaign.RewardPoints,
		RewardPoints:           50,
		MinLikes:               10,
		VerificationDelayHours: *delayHours,
	}
	if err := p.Campaigns.Create(ctx, c); err != nil {
		return err
	}
	zap.L().Info("seeded campaign", zap.String("campaign_id", c.ID), zap.String("name", c.Name))

	custID := *customerID
	if custID == "" {
		cust := &customer.Customer{
			ID:    p.Node.Generate().String(),
			Email: "demo@example.com",
		}
		if err := p.DB.WithContext(ctx).Create(cust).Error; err != nil {
			return err
		}
		custID = cust.ID
		zap.L().Info("seeded customer", zap.String("customer_id", custID))
	}

	part, err := p.Participations.Submit(ctx, c, custID, *shareURL)
	if err != nil {
		return err
	}
	zap.L().Info("seeded participation",
		zap.String("participation_id", part.ID),
		zap.String("post_id", part.PostID()),
		zap.Time("verification_scheduled_at", part.VerificationScheduledAt),
	)

	return p.Shutdowner.Shutdown()
}
