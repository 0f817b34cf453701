package campaign

import (
	"context"
	"strings"
	"time"

	"shareperk-engage/pkg/errutil"
	"shareperk-engage/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	campaigns repository.Repository[Campaign]
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		campaigns: repository.ProvideStore[Campaign](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := s.campaigns.FindOne(ctx, &Campaign{ID: campaignID})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("campaign not found")
	}
	return c, nil
}

func (s *Service) ListActive(ctx context.Context) ([]*Campaign, error) {
	var active []*Campaign
	now := time.Now()

	if err := s.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Where("(start_at IS NULL OR start_at <= ?) AND (end_at IS NULL OR end_at >= ?)", now, now).
		Find(&active).Error; err != nil {
		return nil, err
	}
	return active, nil
}

// Create validates and persists a campaign. Used by the seed tool; the
// production admin surface lives outside this service.
func (s *Service) Create(ctx context.Context, c *Campaign) error {
	if errs := Validate(c); len(errs) > 0 {
		return errutil.ValidationFailed(strings.Join(errs, "; "))
	}

	if c.ID == "" {
		c.ID = s.node.Generate().String()
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}

	if err := s.campaigns.Create(ctx, c); err != nil {
		zap.L().Error("failed to create campaign", zap.Error(err))
		return err
	}
	return nil
}
