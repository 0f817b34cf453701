package ops

import (
	"context"
	"errors"
	"net/http"

	"shareperk-engage/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ops.service",
	fx.Provide(
		NewService,
		NewRouter,
		NewHTTPServer,
	),
	fx.Invoke(Run),
)

func NewRouter(s *Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.Register(r)
	return r
}

func NewHTTPServer(cfg *config.Config, handler *gin.Engine) *http.Server {
	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8081"
	}
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func Run(lc fx.Lifecycle, srv *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				zap.L().Info("[Ops] starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					zap.L().Fatal("[Ops] HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[Ops] shutting down HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
