package verification

import (
	"shareperk-engage/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(
		NewHTTPVerifier,
		NewHandler,
		NewScheduler,
	),
	fx.Invoke(
		registerHandlers,
		StartScheduler,
	),
)

func registerHandlers(mux *asynq.ServeMux, h *Handler) {
	mux.HandleFunc(taskname.ParticipationVerify, h.HandleVerifyTask)
}
