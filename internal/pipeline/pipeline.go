// Package pipeline orchestrates one assessment run: fetch environmental
// data, analyze risk, generate advice. Stages execute strictly in order and
// progress is emitted to the caller between them. Stage implementations
// absorb their own upstream failures into degraded values; an error returned
// from a stage is an unexpected fault and terminates the run with an error
// frame instead of a result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
)

// Fetcher acquires the environmental snapshot for a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (domain.EnvironmentalSnapshot, error)
}

// Analyzer judges outdoor exposure risk from a snapshot and allergy list.
type Analyzer interface {
	Analyze(ctx context.Context, snapshot domain.EnvironmentalSnapshot, allergies []string) (domain.RiskVerdict, error)
}

// Generator produces the user-facing advisory for a verdict.
type Generator interface {
	Generate(ctx context.Context, location string, verdict domain.RiskVerdict) (string, error)
}

// ProfileStore looks up stored user profiles.
type ProfileStore interface {
	GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// AlertStore records assessment outcomes.
type AlertStore interface {
	LogAlert(ctx context.Context, entry domain.AlertEntry) (domain.AlertEntry, error)
}

// AlertPublisher broadcasts a completed assessment to interested consumers.
type AlertPublisher interface {
	PublishAssessment(ctx context.Context, result domain.AssessmentResult) error
}

// Stores groups the optional side-effect collaborators. Any field may be
// nil; the runner skips what is absent.
type Stores struct {
	Profiles  ProfileStore
	Alerts    AlertStore
	Publisher AlertPublisher
}

// EmitFunc delivers one progress event to the client. A returned error means
// the client can no longer receive events and aborts the run.
type EmitFunc func(domain.ProgressEvent) error

// Input is one assessment request after transport-level validation.
type Input struct {
	Location  string
	UserID    string
	Allergies []string
}

// errEmitFailed marks emit-callback failures, which mean the client is gone.
// The runner stops without attempting a terminal frame for these.
var errEmitFailed = errors.New("emit failed")

// Runner executes assessment runs over the three stages.
type Runner struct {
	fetcher   Fetcher
	analyzer  Analyzer
	generator Generator
	stores    Stores
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRunner creates a Runner with the given stages, side-effect
// collaborators, and observability.
func NewRunner(f Fetcher, a Analyzer, g Generator, stores Stores, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		fetcher:   f,
		analyzer:  a,
		generator: g,
		stores:    stores,
		logger:    logger,
		metrics:   metrics,
	}
}

// Stream executes one run, delivering progress events through emit. The
// stream always carries exactly one terminal frame (result or error) unless
// the client disconnects first.
func (r *Runner) Stream(ctx context.Context, input Input, emit EmitFunc) error {
	return r.run(ctx, input, emit, "stream")
}

// Run executes one run without progress delivery and returns the terminal
// result: the blocking form of Stream with events discarded.
func (r *Runner) Run(ctx context.Context, input Input) (domain.AssessmentResult, error) {
	var result domain.AssessmentResult
	err := r.run(ctx, input, func(event domain.ProgressEvent) error {
		if event.Type == domain.EventResult && event.Data != nil {
			result = *event.Data
		}
		return nil
	}, "blocking")
	return result, err
}

func (r *Runner) run(ctx context.Context, input Input, emit EmitFunc, mode string) error {
	r.metrics.AssessmentsStarted.WithLabelValues(mode).Inc()
	r.logger.Info("assessment started",
		"location", input.Location,
		"user_id", input.UserID,
		"mode", mode)

	allergies := r.resolveAllergies(ctx, input)

	var (
		snapshot domain.EnvironmentalSnapshot
		verdict  domain.RiskVerdict
		advice   string
	)

	err := r.stage(domain.StageFetch, emit, func() error {
		var stageErr error
		snapshot, stageErr = r.fetcher.Fetch(ctx, input.Location)
		return stageErr
	})
	if err == nil {
		err = r.stage(domain.StageAnalyze, emit, func() error {
			var stageErr error
			verdict, stageErr = r.analyzer.Analyze(ctx, snapshot, allergies)
			return stageErr
		})
	}
	if err == nil {
		err = r.stage(domain.StageAdvise, emit, func() error {
			var stageErr error
			advice, stageErr = r.generator.Generate(ctx, input.Location, verdict)
			return stageErr
		})
	}
	if err != nil {
		r.metrics.AssessmentsCompleted.WithLabelValues(mode, "error").Inc()
		r.logger.Error("assessment failed", "location", input.Location, "error", err)
		if !errors.Is(err, errEmitFailed) {
			// Best effort: the client may already be gone.
			_ = emit(domain.ErrorFrame(err.Error()))
		}
		return err
	}

	result := domain.AssessmentResult{
		Location:       input.Location,
		UserAllergies:  allergies,
		WeatherData:    snapshot,
		RiskAssessment: verdict,
		Advice:         advice,
	}

	r.logAlert(ctx, input.UserID, result)
	r.publish(ctx, result)

	if err := emit(domain.ResultFrame(result)); err != nil {
		r.metrics.AssessmentsCompleted.WithLabelValues(mode, "error").Inc()
		return fmt.Errorf("%w: result frame: %v", errEmitFailed, err)
	}
	r.metrics.AssessmentsCompleted.WithLabelValues(mode, "success").Inc()
	r.logger.Info("assessment completed",
		"location", input.Location,
		"risk_level", verdict.RiskLevel,
		"status", snapshot.Status)
	return nil
}

// stage wraps one stage execution with its start/complete frames and
// duration metric.
func (r *Runner) stage(s domain.Stage, emit EmitFunc, fn func() error) error {
	if err := emit(domain.StepStart(s)); err != nil {
		return fmt.Errorf("%w: %s start: %v", errEmitFailed, s.ID, err)
	}

	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("stage %s: %w", s.ID, err)
	}
	r.metrics.StageDuration.WithLabelValues(s.ID).Observe(time.Since(start).Seconds())

	if err := emit(domain.StepComplete(s)); err != nil {
		return fmt.Errorf("%w: %s complete: %v", errEmitFailed, s.ID, err)
	}
	return nil
}

// resolveAllergies gates pipeline entry: stored profile first, then request
// allergies, then the default list. Lookup failures fall back silently to
// the request's list.
func (r *Runner) resolveAllergies(ctx context.Context, input Input) []string {
	var profile *domain.UserProfile
	if input.UserID != "" && r.stores.Profiles != nil {
		p, err := r.stores.Profiles.GetUserProfile(ctx, input.UserID)
		if err != nil {
			r.logger.Warn("profile lookup failed, using request allergies",
				"user_id", input.UserID,
				"error", err)
		} else {
			profile = p
		}
	}
	return domain.ResolveAllergies(profile, input.Allergies)
}

// logAlert records the outcome for a known user. Failures are logged and
// counted, never surfaced: the result must not depend on persistence.
func (r *Runner) logAlert(ctx context.Context, userID string, result domain.AssessmentResult) {
	if userID == "" || r.stores.Alerts == nil {
		return
	}
	_, err := r.stores.Alerts.LogAlert(ctx, domain.AlertEntry{
		UserID:    userID,
		Location:  result.Location,
		RiskLevel: result.RiskAssessment.RiskLevel,
		Snapshot:  result.WeatherData,
	})
	if err != nil {
		r.metrics.AlertLogWrites.WithLabelValues("error").Inc()
		r.logger.Warn("alert log write failed", "user_id", userID, "error", err)
		return
	}
	r.metrics.AlertLogWrites.WithLabelValues("success").Inc()
}

// publish broadcasts the result in the background. The run never waits for
// or fails on delivery.
func (r *Runner) publish(ctx context.Context, result domain.AssessmentResult) {
	if r.stores.Publisher == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := r.stores.Publisher.PublishAssessment(bg, result); err != nil {
			r.metrics.Notifications.WithLabelValues("kafka", "failed").Inc()
			r.logger.Warn("alert publish failed", "location", result.Location, "error", err)
			return
		}
		r.metrics.Notifications.WithLabelValues("kafka", "sent").Inc()
	}()
}
