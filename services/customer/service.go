package customer

import (
	"context"

	"shareperk-engage/pkg/errutil"
	"shareperk-engage/pkg/repository"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	customers repository.Repository[Customer]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{customers: repository.ProvideStore[Customer](p.DB)}
}

func (s *Service) Get(ctx context.Context, customerID string) (*Customer, error) {
	c, err := s.customers.FindOne(ctx, &Customer{ID: customerID})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("customer not found")
	}
	return c, nil
}

var Module = fx.Module("customer.service",
	fx.Provide(NewService),
)
