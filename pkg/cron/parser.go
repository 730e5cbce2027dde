package cron

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidCronExpression = errors.New("invalid cron expression")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule is a parsed expression bound to the location its fields are
// evaluated in.
type Schedule struct {
	expr string
	loc  *time.Location
	spec cron.Schedule
}

// Parse accepts standard five field expressions and the descriptors
// understood by robfig/cron, such as "@every 30s" or "@hourly". A nil loc
// means UTC.
func Parse(expr string, loc *time.Location) (*Schedule, error) {
	if expr == "" {
		return nil, ErrInvalidCronExpression
	}
	spec, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronExpression, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Schedule{expr: expr, loc: loc, spec: spec}, nil
}

func (s *Schedule) String() string {
	return s.expr
}

// Next returns the first activation strictly after from.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.spec.Next(from.In(s.loc))
}

// Wait returns the delay until the next activation, never negative.
func (s *Schedule) Wait(now time.Time) time.Duration {
	return max(s.Next(now).Sub(now), 0)
}
