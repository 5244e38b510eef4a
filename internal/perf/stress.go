package perf

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBreakingPoint is the success rate below which a stress test
// stops adding users.
const DefaultBreakingPoint = 95.0

// StressOptions describe a stepped load test. Stages run Step, 2*Step,
// and so on up to MaxUsers users, each with the settings of Base.
type StressOptions struct {
	Base     Options
	Step     int
	MaxUsers int
	// BreakingPoint is a success rate in percent. Zero means
	// DefaultBreakingPoint.
	BreakingPoint float64
}

func (o StressOptions) validate() error {
	base := o.Base
	base.Users = 1
	errs := []error{base.validate()}
	if o.Step <= 0 {
		errs = append(errs, fmt.Errorf("step must be greater than 0, got %d", o.Step))
	}
	if o.MaxUsers < o.Step {
		errs = append(errs, fmt.Errorf("max users must be at least the step (%d), got %d", o.Step, o.MaxUsers))
	}
	if o.BreakingPoint < 0 || o.BreakingPoint > 100 {
		errs = append(errs, fmt.Errorf("breaking point must be between 0 and 100, got %g", o.BreakingPoint))
	}
	return errors.Join(errs...)
}

// StressResult holds every stage that ran, in order.
type StressResult struct {
	Name          string    `json:"name"`
	Step          int       `json:"step"`
	MaxUsers      int       `json:"max_users"`
	BreakingPoint float64   `json:"breaking_point"`
	StartedAt     time.Time `json:"started_at"`
	Stages        []*Result `json:"stages"`
	// BrokeAt is the user count of the stage that fell below the
	// breaking point, or zero when every stage held.
	BrokeAt int `json:"broke_at,omitempty"`
}

// MaxStableUsers is the largest user count whose stage stayed at or above
// the breaking point.
func (r *StressResult) MaxStableUsers() int {
	stable := 0
	for _, stage := range r.Stages {
		if stage.Stats.SuccessRate >= r.BreakingPoint {
			stable = stage.Users
		}
	}
	return stable
}

// FileName is the result file name for r.
func (r *StressResult) FileName() string {
	return fileName(r.Name+" stress", r.StartedAt)
}

// WriteStressResult stores r as indented JSON in dir and returns the file
// path.
func WriteStressResult(dir string, r *StressResult) (string, error) {
	return writeJSON(dir, r.FileName(), r)
}

// Stress runs stages with a growing number of users and stops after the
// first stage whose success rate drops below the breaking point. An
// interrupted stage is kept in the result and ends the run.
func (r *Runner) Stress(ctx context.Context, opts StressOptions) (*StressResult, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid stress test: %w", err)
	}
	if opts.BreakingPoint == 0 {
		opts.BreakingPoint = DefaultBreakingPoint
	}
	base := opts.Base
	if base.Method == "" {
		base.Method = "GET"
	}
	name := base.Name
	if name == "" {
		name = base.Method + " " + base.Path
	}

	res := &StressResult{
		Name:          name,
		Step:          opts.Step,
		MaxUsers:      opts.MaxUsers,
		BreakingPoint: opts.BreakingPoint,
		StartedAt:     time.Now(),
	}
	log := r.log.With("path", base.Path)
	log.Info("Starting stress test", "step", opts.Step, "max_users", opts.MaxUsers, "breaking_point", opts.BreakingPoint)

	for users := opts.Step; users <= opts.MaxUsers; users += opts.Step {
		stage := base
		stage.Users = users
		stage.Name = fmt.Sprintf("%s (%d users)", name, users)

		out, err := r.Run(ctx, stage)
		if out != nil {
			res.Stages = append(res.Stages, out)
		}
		if err != nil {
			return res, err
		}
		if out.Stats.SuccessRate < opts.BreakingPoint {
			res.BrokeAt = users
			log.Warn("Breaking point reached",
				"users", users,
				"success_rate", fmt.Sprintf("%.2f%%", out.Stats.SuccessRate))
			break
		}
	}

	log.Info("Stress test finished", "stages", len(res.Stages), "max_stable_users", res.MaxStableUsers())
	return res, nil
}
