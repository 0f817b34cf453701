package campaign

import "fmt"

// Validate checks a campaign definition at create/update time and returns
// human-readable problems; an empty slice means the campaign is valid.
// The pipeline does not rely on this having run: workers re-check the
// reward payload via RewardSpec and fail closed.
func Validate(c *Campaign) []string {
	var errs []string

	if c.StartAt != nil && c.EndAt != nil && !c.StartAt.Before(*c.EndAt) {
		errs = append(errs, "start date must be before end date")
	}

	switch c.RewardType {
	case RewardVoucher:
		if c.VoucherTemplateID == nil || *c.VoucherTemplateID == "" {
			errs = append(errs, "voucher reward requires a voucher template")
		}
	case RewardPoints:
		if c.RewardPoints <= 0 {
			errs = append(errs, "points reward requires a positive point amount")
		}
	case RewardBoth:
		if c.VoucherTemplateID == nil || *c.VoucherTemplateID == "" {
			errs = append(errs, "voucher reward requires a voucher template")
		}
		if c.RewardPoints <= 0 {
			errs = append(errs, "points reward requires a positive point amount")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown reward type %q", c.RewardType))
	}

	if c.VerificationDelayHours <= 0 {
		errs = append(errs, "verification delay must be positive")
	}

	if c.MinLikes < 0 || c.MinShares < 0 || c.MinComments < 0 {
		errs = append(errs, "engagement thresholds must not be negative")
	}

	if c.MaxParticipations != nil && *c.MaxParticipations <= 0 {
		errs = append(errs, "participation cap must be positive when set")
	}
	if c.MaxPerCustomer != nil && *c.MaxPerCustomer <= 0 {
		errs = append(errs, "per-customer cap must be positive when set")
	}

	return errs
}
