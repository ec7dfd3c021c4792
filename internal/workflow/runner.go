package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// outcome is what a single step attempt produced. A payload may accompany an
// INSUFFICIENT_SIGNAL error so that risk scoring still sees what was found.
type outcome struct {
	payload domain.StepPayload
	success bool
}

type stepFunc func(ctx context.Context) (outcome, error)

// runStep executes fn under the step's timeout and retry policy and always
// returns a result, recording panics as failures.
func (o *Orchestrator) runStep(ctx context.Context, step domain.VerificationStep, fn stepFunc) (res domain.StepResult) {
	start := time.Now()
	res = domain.StepResult{StepID: step.ID, Type: step.Type, Required: step.Required}

	defer func() {
		if r := recover(); r != nil {
			res.Payload = nil
			res.Success = false
			res.Error = panicFailure(r)
		}
		res.ProcessingTime = domain.MillisecondsSince(start)
		res.Timestamp = time.Now().UTC()
		o.recordStep(ctx, res)
	}()

	backoff := o.backoffBase
	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		out, err := o.attempt(ctx, step, fn)
		res.Payload = out.payload
		res.Success = out.success && err == nil
		res.Error = domain.ClassifyStepError(err)

		if !o.shouldRetry(ctx, res.Error, attempt, step.RetryCount) {
			return res
		}

		o.metrics.IncrementStepRetry(string(step.Type))
		o.logger.WarnContext(ctx, "retrying step",
			slog.String("step", step.ID),
			slog.Int("attempt", res.Attempts),
			slog.Duration("backoff", backoff),
			slog.String("error", res.Error.Error()),
		)

		select {
		case <-ctx.Done():
			return res
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, o.backoffMax)
	}
}

func (o *Orchestrator) shouldRetry(ctx context.Context, err *domain.StepError, attempt, retries int) bool {
	if err == nil || attempt >= retries || ctx.Err() != nil {
		return false
	}
	return err.Kind == domain.KindAnalysisFailure && err.Retryable
}

// attempt runs fn once with a hard deadline. A capability that ignores its
// context is abandoned when the deadline passes.
func (o *Orchestrator) attempt(ctx context.Context, step domain.VerificationStep, fn stepFunc) (outcome, error) {
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}

	type reply struct {
		out outcome
		err error
	}
	ch := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: panicFailure(r)}
			}
		}()
		out, err := fn(ctx)
		ch <- reply{out: out, err: err}
	}()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

func panicFailure(r any) *domain.StepError {
	return domain.NewAnalysisFailure("step panicked", fmt.Errorf("panic: %v", r), false)
}

func (o *Orchestrator) recordStep(ctx context.Context, res domain.StepResult) {
	o.metrics.ObserveStep(string(res.Type), res.Success, res.ProcessingTime.Duration())

	if res.Error == nil {
		o.logger.DebugContext(ctx, "step completed",
			slog.String("step", res.StepID),
			slog.Bool("success", res.Success),
			slog.Int("attempts", res.Attempts),
			slog.Duration("duration", res.ProcessingTime.Duration()),
		)
		return
	}

	o.metrics.IncrementStepFailure(string(res.Type), string(res.Error.Kind))
	o.logger.WarnContext(ctx, "step failed",
		slog.String("step", res.StepID),
		slog.String("kind", string(res.Error.Kind)),
		slog.Int("attempts", res.Attempts),
		slog.String("error", res.Error.Error()),
	)
	o.logAudit(ctx, audit.EventStepFailed, false, res.Error, map[string]string{
		"step":     res.StepID,
		"kind":     string(res.Error.Kind),
		"attempts": fmt.Sprint(res.Attempts),
		"required": fmt.Sprint(res.Required),
	})
}

// logAudit is fire-and-forget: audit failures never affect the pipeline.
func (o *Orchestrator) logAudit(ctx context.Context, eventType audit.EventType, success bool, err error, details map[string]string) {
	if o.audit == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Success:   success,
		Details:   details,
	}
	if err != nil {
		event.Error = err.Error()
	}

	_ = o.audit.Log(ctx, event)
}
