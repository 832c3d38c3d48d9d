package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WorkCenterID identifies a finite resource
type WorkCenterID string

// WorkCenter is a resource that routing operations are loaded onto
type WorkCenter struct {
	ID          WorkCenterID    `json:"id"`
	Description string          `json:"description"`
	HoursPerDay decimal.Decimal `json:"hours_per_day"`
	// BucketHours is the available capacity per bucket when no explicit ResourceCapacity exists
	BucketHours decimal.Decimal `json:"bucket_hours"`
}

// NewWorkCenter creates a validated WorkCenter
func NewWorkCenter(id WorkCenterID, description string, hoursPerDay, bucketHours decimal.Decimal) (*WorkCenter, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("work center id cannot be empty")
	}
	if !hoursPerDay.IsPositive() {
		return nil, fmt.Errorf("hours per day must be positive, got %s", hoursPerDay)
	}
	if bucketHours.IsNegative() {
		return nil, fmt.Errorf("bucket hours cannot be negative, got %s", bucketHours)
	}
	return &WorkCenter{ID: id, Description: description, HoursPerDay: hoursPerDay, BucketHours: bucketHours}, nil
}

// ResourceCapacity is the load of one work center in one capacity bucket
type ResourceCapacity struct {
	WorkCenterID   WorkCenterID    `json:"work_center_id"`
	Bucket         time.Time       `json:"bucket"`
	AvailableHours decimal.Decimal `json:"available_hours"`
	AllocatedHours decimal.Decimal `json:"allocated_hours"`
}

// Overloaded reports whether allocation exceeds availability
func (c ResourceCapacity) Overloaded() bool {
	return c.AllocatedHours.GreaterThan(c.AvailableHours)
}

// Excess returns allocated minus available hours, never negative
func (c ResourceCapacity) Excess() decimal.Decimal {
	if !c.Overloaded() {
		return decimal.Zero
	}
	return c.AllocatedHours.Sub(c.AvailableHours)
}

// Utilization returns allocated/available as a percentage; zero availability reports 0
func (c ResourceCapacity) Utilization() decimal.Decimal {
	if !c.AvailableHours.IsPositive() {
		return decimal.Zero
	}
	return c.AllocatedHours.Div(c.AvailableHours).Mul(hundred).Round(1)
}

// CellKey identifies a (work center, bucket) capacity cell
type CellKey struct {
	WorkCenterID WorkCenterID
	Bucket       time.Time
}

func (k CellKey) String() string {
	return fmt.Sprintf("%s|%s", k.WorkCenterID, k.Bucket.Format("2006-01-02"))
}
