package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"shareperk-engage/pkg/config"
	"shareperk-engage/pkg/db"
	"shareperk-engage/pkg/logger"
	"shareperk-engage/pkg/redis"
	"shareperk-engage/pkg/task"
	"shareperk-engage/services/campaign"
	"shareperk-engage/services/customer"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/reward"
	"shareperk-engage/services/verification"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		fx.Provide(provideSnowflakeNode),
		campaign.Module,
		customer.Module,
		participation.Module,
		reward.Module,
		verification.Module,
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
