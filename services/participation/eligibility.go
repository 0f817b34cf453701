package participation

import (
	"context"
	"errors"
	"time"

	"shareperk-engage/services/campaign"

	"gorm.io/gorm"
)

// Eligibility is the advisory verdict on whether a customer may currently
// participate in a campaign. It is a point-in-time read, not a lock: the
// conditional status transitions remain the source of truth under races.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Limits describes a campaign's global participation headroom.
type Limits struct {
	CanAcceptMore bool   `json:"can_accept_more"`
	Current       int64  `json:"current"`
	Max           *int64 `json:"max,omitempty"`
}

const (
	ReasonCampaignNotFound   = "campaign not found"
	ReasonCampaignNotActive  = "campaign is not active"
	ReasonCampaignNotStarted = "campaign has not started yet"
	ReasonCampaignEnded      = "campaign has ended"
	ReasonCampaignFull       = "campaign participation limit reached"
	ReasonAlreadyJoined      = "customer has already participated in this campaign"
	ReasonCustomerLimit      = "customer participation limit reached"
)

func ineligible(reason string) Eligibility {
	return Eligibility{Eligible: false, Reason: reason}
}

// CheckEligibility runs the ordered eligibility checks and short-circuits on
// the first failure.
func (s *Service) CheckEligibility(ctx context.Context, campaignID, customerID string) (Eligibility, error) {
	var c campaign.Campaign
	if err := s.db.WithContext(ctx).Where("id = ?", campaignID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ineligible(ReasonCampaignNotFound), nil
		}
		return Eligibility{}, err
	}

	if c.Status != campaign.StatusActive {
		return ineligible(ReasonCampaignNotActive), nil
	}

	now := time.Now()
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return ineligible(ReasonCampaignNotStarted), nil
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return ineligible(ReasonCampaignEnded), nil
	}

	if c.MaxParticipations != nil {
		total, err := s.participations.Count(ctx, &Participation{CampaignID: campaignID})
		if err != nil {
			return Eligibility{}, err
		}
		if total >= *c.MaxParticipations {
			return ineligible(ReasonCampaignFull), nil
		}
	}

	// per-customer cap defaults to one participation
	perCustomer := int64(1)
	if c.MaxPerCustomer != nil {
		perCustomer = *c.MaxPerCustomer
	}

	mine, err := s.participations.Count(ctx, &Participation{CampaignID: campaignID, CustomerID: customerID})
	if err != nil {
		return Eligibility{}, err
	}
	if mine >= perCustomer {
		if perCustomer == 1 {
			return ineligible(ReasonAlreadyJoined), nil
		}
		return ineligible(ReasonCustomerLimit), nil
	}

	return Eligibility{Eligible: true}, nil
}

// CheckParticipationLimits is the lighter read used by submission-time
// gating: it only considers the global cap.
func (s *Service) CheckParticipationLimits(ctx context.Context, campaignID string) (Limits, error) {
	var c campaign.Campaign
	if err := s.db.WithContext(ctx).Where("id = ?", campaignID).First(&c).Error; err != nil {
		return Limits{}, err
	}

	current, err := s.participations.Count(ctx, &Participation{CampaignID: campaignID})
	if err != nil {
		return Limits{}, err
	}

	limits := Limits{Current: current, Max: c.MaxParticipations, CanAcceptMore: true}
	if c.MaxParticipations != nil && current >= *c.MaxParticipations {
		limits.CanAcceptMore = false
	}
	return limits, nil
}
