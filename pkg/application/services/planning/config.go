package planning

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// Missing parameter policies
const (
	MissingParameterDefault   = "default"
	MissingParameterException = "exception"
)

// Config holds the engine tunables of a planner
type Config struct {
	BucketDays             int
	Workers                int
	DefaultParameter       entities.MRPParameter
	MissingParameterPolicy string
	FirmTolerancePercent   decimal.Decimal
	ExcessThresholdPercent decimal.Decimal
	DispatchRule           string
	// SnapshotRetention is how many run snapshots are kept for what-if re-runs
	SnapshotRetention int
}

// DefaultConfig returns weekly capacity buckets, lot-for-lot defaults and EDD dispatch
func DefaultConfig() Config {
	return Config{
		BucketDays:             7,
		Workers:                4,
		DefaultParameter:       entities.MRPParameter{LotSizing: entities.LotSizingMethod{Kind: entities.LotForLot}, ServiceLevelPercent: 95},
		MissingParameterPolicy: MissingParameterDefault,
		FirmTolerancePercent:   decimal.NewFromInt(10),
		ExcessThresholdPercent: decimal.NewFromInt(50),
		DispatchRule:           "EDD",
		SnapshotRetention:      32,
	}
}

func (c Config) validate() error {
	switch c.MissingParameterPolicy {
	case MissingParameterDefault, MissingParameterException:
	default:
		return fmt.Errorf("unknown missing parameter policy: %s", c.MissingParameterPolicy)
	}
	if c.FirmTolerancePercent.IsNegative() || c.ExcessThresholdPercent.IsNegative() {
		return fmt.Errorf("tolerance and excess threshold cannot be negative")
	}
	if err := c.DefaultParameter.LotSizing.Validate(); err != nil {
		return fmt.Errorf("default parameter: %w", err)
	}
	return nil
}
