package participation

import (
	"context"
	"encoding/json"
	"time"

	"shareperk-engage/pkg/db/option"
	"shareperk-engage/pkg/db/pagination"
	"shareperk-engage/pkg/errutil"
	"shareperk-engage/pkg/repository"
	"shareperk-engage/pkg/sharelink"
	"shareperk-engage/services/campaign"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	participations repository.Repository[Participation]
	records        repository.Repository[ShareVerificationRecord]
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:             p.DB,
		node:           p.Node,
		participations: repository.ProvideStore[Participation](p.DB),
		records:        repository.ProvideStore[ShareVerificationRecord](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, participationID string) (*Participation, error) {
	p, err := s.participations.FindOne(ctx, &Participation{ID: participationID})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("participation not found")
	}
	return p, nil
}

// Submit records a customer's share for a campaign. The participation
// starts in pending with verification scheduled after the campaign's
// configured delay, so the shared post has time to accumulate engagement
// before the first check.
func (s *Service) Submit(ctx context.Context, c *campaign.Campaign, customerID, shareURL string) (*Participation, error) {
	post, err := sharelink.Parse(shareURL)
	if err != nil {
		return nil, errutil.BadRequest("unrecognized share link", errutil.WithErr(err))
	}

	elig, err := s.CheckEligibility(ctx, c.ID, customerID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, errutil.Conflict(elig.Reason)
	}

	meta, err := json.Marshal(map[string]string{
		"post_id":   post.ID,
		"platform":  post.Platform,
		"share_url": shareURL,
	})
	if err != nil {
		return nil, err
	}

	p := &Participation{
		ID:                      s.node.Generate().String(),
		CampaignID:              c.ID,
		CustomerID:              customerID,
		Metadata:                meta,
		Status:                  StatusPending,
		VerificationScheduledAt: time.Now().Add(time.Duration(c.VerificationDelayHours) * time.Hour),
	}
	if err := s.participations.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// FindDue returns pending participations whose scheduled verification time
// has passed, oldest first. The ordering is a fairness hint, not a
// correctness guarantee.
func (s *Service) FindDue(ctx context.Context, now time.Time, limit int) ([]*Participation, error) {
	var due []*Participation
	if err := s.db.WithContext(ctx).
		Where("status = ? AND verification_scheduled_at <= ?", StatusPending, now).
		Order("verification_scheduled_at ASC").
		Limit(limit).
		Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

// FindStuck returns participations left in verifying with no progress since
// the cutoff, e.g. after a crash between claim and enqueue.
func (s *Service) FindStuck(ctx context.Context, cutoff time.Time, limit int) ([]*Participation, error) {
	var stuck []*Participation
	if err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", StatusVerifying, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&stuck).Error; err != nil {
		return nil, err
	}
	return stuck, nil
}

// ClaimForVerification moves a participation from pending to verifying with
// a single conditional update. When several scheduler instances race on the
// same row, exactly one claim succeeds.
func (s *Service) ClaimForVerification(ctx context.Context, participationID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&Participation{}).
		Where("id = ? AND status = ?", participationID, StatusPending).
		Updates(map[string]any{
			"status":     StatusVerifying,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkRejected finalizes a verifying participation as rejected. Rejection is
// terminal; the pipeline never reschedules a rejected participation.
func (s *Service) MarkRejected(ctx context.Context, participationID, reason string) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&Participation{}).
		Where("id = ? AND status = ?", participationID, StatusVerifying).
		Updates(map[string]any{
			"status":                StatusRejected,
			"rejection_reason":      reason,
			"verification_attempts": gorm.Expr("verification_attempts + 1"),
			"last_verified_at":      now,
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByStatus pages through participations in a given status, keyed on
// (updated_at, id) so the cursor stays stable while rows churn.
func (s *Service) ListByStatus(ctx context.Context, status Status, cursor *pagination.Cursor, limit int) ([]*Participation, error) {
	q := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC, id ASC").
		Limit(limit)

	if cursor != nil {
		q = q.Where("(updated_at > ?) OR (updated_at = ? AND id > ?)", cursor.UpdatedAt, cursor.UpdatedAt, cursor.ID)
	}

	var rows []*Participation
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Records returns the verification history of a participation, oldest
// attempt first.
func (s *Service) Records(ctx context.Context, participationID string) ([]*ShareVerificationRecord, error) {
	return s.records.Find(ctx,
		&ShareVerificationRecord{ParticipationID: participationID},
		option.WithOrder("attempt ASC"),
	)
}

// AppendRecord stores one verification attempt. Records are append-only.
func (s *Service) AppendRecord(ctx context.Context, rec *ShareVerificationRecord) error {
	if rec.ID == "" {
		rec.ID = s.node.Generate().String()
	}
	return s.records.Create(ctx, rec)
}

// NextAttempt returns the attempt number the next verification record
// should carry for this participation.
func (s *Service) NextAttempt(ctx context.Context, participationID string) (int, error) {
	count, err := s.records.Count(ctx, &ShareVerificationRecord{ParticipationID: participationID})
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

var Module = fx.Module("participation.service",
	fx.Provide(NewService),
)
