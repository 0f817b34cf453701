package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shareperk-engage/pkg/errutil"
	"shareperk-engage/services/campaign"
	"shareperk-engage/services/customer"
	"shareperk-engage/services/participation"
	"shareperk-engage/services/reward"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	reasonPostMissing = "post no longer exists"
	reasonPostDeleted = "post was deleted"
	reasonThresholds  = "engagement thresholds not met"
)

// Handler runs one verification attempt end-to-end. Data errors are marked
// fatal so the queue stops retrying immediately; infrastructure errors are
// returned plain and retried with backoff until the attempt ceiling, after
// which the task is archived and the participation stays in verifying for
// operator inspection.
type Handler struct {
	participations *participation.Service
	campaigns      *campaign.Service
	customers      *customer.Service
	verifier       Verifier
	distributor    *reward.Distributor
}

type HandlerParams struct {
	fx.In

	Participations *participation.Service
	Campaigns      *campaign.Service
	Customers      *customer.Service
	Verifier       Verifier
	Distributor    *reward.Distributor
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		participations: p.Participations,
		campaigns:      p.Campaigns,
		customers:      p.Customers,
		verifier:       p.Verifier,
		distributor:    p.Distributor,
	}
}

func (h *Handler) HandleVerifyTask(ctx context.Context, t *asynq.Task) error {
	var payload VerifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return errutil.Fatalf("invalid payload: %w", err)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("participation_id", payload.ParticipationID),
	)
	zapLog.Info("start verification attempt")

	p, err := h.participations.Get(ctx, payload.ParticipationID)
	if err != nil {
		return classifyLoadError("participation", err)
	}

	// idempotent consumer: a re-delivered job for a finalized participation
	// is acknowledged without action
	if p.Status == participation.StatusRewarded || p.Status == participation.StatusRejected {
		zapLog.Info("participation already finalized, skipping", zap.String("status", string(p.Status)))
		return nil
	}

	c, err := h.campaigns.Get(ctx, p.CampaignID)
	if err != nil {
		return classifyLoadError("campaign", err)
	}

	cust, err := h.customers.Get(ctx, p.CustomerID)
	if err != nil {
		return classifyLoadError("customer", err)
	}

	postID := p.PostID()
	if postID == "" {
		return errutil.Fatalf("participation %s has no post identifier in metadata", p.ID)
	}

	result, err := h.verifier.VerifyPost(ctx, postID, c.Thresholds())
	if err != nil {
		zapLog.Warn("verifier call failed", zap.Error(err))
		return err
	}

	passed := result.Exists && !result.Deleted && result.MeetsThresholds

	attempt, err := h.participations.NextAttempt(ctx, p.ID)
	if err != nil {
		return err
	}

	rec := &participation.ShareVerificationRecord{
		ParticipationID: p.ID,
		Attempt:         attempt,
		PostExists:      result.Exists,
		PostDeleted:     result.Deleted,
		Likes:           result.Engagement.Likes,
		Shares:          result.Engagement.Shares,
		Comments:        result.Engagement.Comments,
		Passed:          passed,
		FailureReason:   failureReason(result),
		RawResponse:     []byte(result.Raw),
	}
	if err := h.participations.AppendRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to append verification record: %w", err)
	}

	if passed {
		if err := h.distributor.Distribute(ctx, p, c, cust, rec.ID); err != nil {
			zapLog.Error("reward distribution failed", zap.Error(err))
			return err
		}
		zapLog.Info("verification passed, reward distributed", zap.Int("attempt", attempt))
		return nil
	}

	rejected, err := h.participations.MarkRejected(ctx, p.ID, rec.FailureReason)
	if err != nil {
		return err
	}
	if !rejected {
		zapLog.Warn("participation was finalized concurrently, rejection skipped")
		return nil
	}

	zapLog.Info("verification failed, participation rejected",
		zap.Int("attempt", attempt),
		zap.String("reason", rec.FailureReason),
	)
	return nil
}

func failureReason(r *Result) string {
	switch {
	case r.Deleted:
		return reasonPostDeleted
	case !r.Exists:
		return reasonPostMissing
	case !r.MeetsThresholds:
		return reasonThresholds
	default:
		return ""
	}
}

// classifyLoadError keeps the retryable/fatal split explicit: a missing row
// cannot heal on retry, everything else might.
func classifyLoadError(entity string, err error) error {
	var be errutil.BaseError
	if errors.As(err, &be) && be.Code == errutil.StatusNotFound {
		return errutil.Fatalf("%s is gone: %w", entity, err)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
