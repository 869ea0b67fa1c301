package health

import (
	"context"
	"fmt"
)

// Checker probes a single external dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// ReadinessUseCase answers whether the service can take traffic.
type ReadinessUseCase interface {
	Ready(ctx context.Context) error
}

type service struct {
	checkers []Checker
}

// NewService builds a readiness check over the given dependency probes.
func NewService(checkers ...Checker) ReadinessUseCase {
	return &service{checkers: checkers}
}

// Ready runs every probe in order and fails on the first unhealthy one.
func (s *service) Ready(ctx context.Context) error {
	for _, c := range s.checkers {
		if err := c.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}
