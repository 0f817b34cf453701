package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"shareperk-engage/pkg/config"
	"shareperk-engage/pkg/db"
	"shareperk-engage/pkg/health"
	"shareperk-engage/pkg/logger"
	"shareperk-engage/pkg/redis"
	"shareperk-engage/pkg/task"
	"shareperk-engage/services/ops"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/verification"
)

// The ops binary serves the operator API only. It can enqueue verification
// jobs but never consumes them; that is the engage worker's job.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		health.Module,
		fx.Provide(
			provideSnowflakeNode,
			task.NewInspector,
			verification.NewScheduler,
		),
		participation.Module,
		ops.Module,
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
