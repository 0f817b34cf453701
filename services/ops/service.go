package ops

import (
	"errors"
	"net/http"
	"time"

	"shareperk-engage/pkg/db/pagination"
	"shareperk-engage/pkg/errutil"
	"shareperk-engage/pkg/health"
	"shareperk-engage/pkg/taskname"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/verification"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service is the operator surface of the pipeline: dead-letter inspection,
// manual sweeps and requeues. It is not a customer-facing API.
type Service struct {
	inspector      *asynq.Inspector
	scheduler      *verification.Scheduler
	participations *participation.Service
	health         health.HealthService
}

type ServiceParams struct {
	fx.In

	Inspector      *asynq.Inspector
	Scheduler      *verification.Scheduler
	Participations *participation.Service
	Health         health.HealthService
}

func NewService(p ServiceParams) *Service {
	return &Service{
		inspector:      p.Inspector,
		scheduler:      p.Scheduler,
		participations: p.Participations,
		health:         p.Health,
	}
}

func (s *Service) Register(r *gin.Engine) {
	r.GET("/healthz", s.health.Liveness)
	r.GET("/readyz", s.health.Readiness)

	ops := r.Group("/ops")
	ops.GET("/dead-letter", s.listDeadLetter)
	ops.POST("/dead-letter/:task_id/retry", s.retryDeadLetter)
	ops.POST("/sweep", s.runSweep)
	ops.GET("/participations", s.listParticipations)
	ops.GET("/participations/:id", s.getParticipation)
	ops.POST("/participations/:id/requeue", s.requeueParticipation)
}

type deadLetterTask struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Payload    string `json:"payload"`
	LastError  string `json:"last_error"`
	Retried    int    `json:"retried"`
	MaxRetry   int    `json:"max_retry"`
	LastFailed string `json:"last_failed_at"`
}

func (s *Service) listDeadLetter(c *gin.Context) {
	tasks, err := s.inspector.ListArchivedTasks(taskname.QueueVerification, asynq.PageSize(100))
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]deadLetterTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, deadLetterTask{
			ID:         t.ID,
			Type:       t.Type,
			Payload:    string(t.Payload),
			LastError:  t.LastErr,
			Retried:    t.Retried,
			MaxRetry:   t.MaxRetry,
			LastFailed: t.LastFailedAt.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (s *Service) retryDeadLetter(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := s.inspector.RunTask(taskname.QueueVerification, taskID); err != nil {
		abortWithError(c, err)
		return
	}

	zap.L().Info("[Ops] dead-letter task requeued", zap.String("task_id", taskID))
	c.JSON(http.StatusOK, gin.H{"requeued": taskID})
}

func (s *Service) runSweep(c *gin.Context) {
	requeued, err := s.scheduler.SweepStuck(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requeued": requeued})
}

func (s *Service) listParticipations(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := participation.Status(c.DefaultQuery("status", string(participation.StatusVerifying)))

	var cursor *pagination.Cursor
	if page.Cursor != "" {
		var err error
		cursor, err = pagination.DecodeCursor(page.Cursor)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
	}

	rows, err := s.participations.ListByStatus(c.Request.Context(), status, cursor, page.Limit+1)
	if err != nil {
		abortWithError(c, err)
		return
	}

	rows, info := pagination.BuildPageInfo(rows, page.Limit, func(p *participation.Participation) pagination.Cursor {
		return pagination.Cursor{UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339Nano), ID: p.ID}
	})

	c.JSON(http.StatusOK, gin.H{"participations": rows, "page": info})
}

// getParticipation returns one participation with its full verification
// history, the operator's first stop when triaging a stuck or dead-lettered
// row.
func (s *Service) getParticipation(c *gin.Context) {
	id := c.Param("id")

	p, err := s.participations.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	records, err := s.participations.Records(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participation": p, "records": records})
}

func (s *Service) requeueParticipation(c *gin.Context) {
	id := c.Param("id")
	if err := s.scheduler.Requeue(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	zap.L().Info("[Ops] participation requeued", zap.String("participation_id", id))
	c.JSON(http.StatusOK, gin.H{"requeued": id})
}

func abortWithError(c *gin.Context, err error) {
	var be errutil.BaseError
	if errors.As(err, &be) {
		c.JSON(be.Code.HTTPStatus(), gin.H{"error": be.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
