// Package stageworker factors the receive→handle→emit→delete shape shared
// by every pipeline stage (scan, probe, transcode, and the resource status
// projector) into one place, the way the teacher's internal/worker package
// centralizes Dependencies, job-running bookkeeping, and webhook dispatch
// for its processors. Each stage still registers its own job-queue handler;
// this package only standardizes what happens around the handler body.
package stageworker

import (
	"context"
	"fmt"
	"time"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/Valtis/videosite/internal/audit"
	"github.com/Valtis/videosite/internal/logger"
	"github.com/Valtis/videosite/internal/metrics"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
)

// Broker is the subset of the job-queue broker every stage needs to emit to
// a downstream queue after handling a message.
type Broker interface {
	Enqueue(jobType string, payload any) (string, error)
}

// Dependencies bundles the collaborators a stage handler needs beyond its
// own domain logic: somewhere to emit follow-on messages and somewhere to
// log fire-and-forget audit trail entries.
type Dependencies struct {
	Broker Broker
	Audit  *audit.Emitter
}

// Emit enqueues a message to a downstream queue, recording the standard
// jobs_enqueued_total metric the teacher's EnqueueWithTracking used.
func (d *Dependencies) Emit(queue string, payload any) error {
	if _, err := d.Broker.Enqueue(queue, payload); err != nil {
		return fmt.Errorf("enqueue %s: %w", queue, err)
	}
	metrics.RecordJobEnqueued(queue)
	return nil
}

// Run wraps a stage's per-message handler with the logging, timing, and
// error-translation contract every stage shares: a non-retryable apperror
// becomes middleware.Permanent (the job-queue library's "do not redeliver"
// marker, used by the teacher for malformed payloads); anything else is
// left as a plain error so the message stays on the queue for redelivery
// within its visibility window.
func Run(ctx context.Context, stage, messageKind string, handler func(context.Context) error) error {
	log := logger.FromContext(ctx).With("stage", stage, "message_kind", messageKind)
	log.Info("message received")
	start := time.Now()

	err := handler(ctx)
	duration := time.Since(start).Seconds()

	if err != nil {
		status := "error"
		if !apperror.IsRetryable(err) {
			status = "dropped"
			log.Error("message handling failed permanently", "error", err)
			metrics.RecordJobProcessed(stage, status, duration)
			return middleware.Permanent(err)
		}
		log.Warn("message handling failed, will retry", "error", err)
		metrics.RecordJobProcessed(stage, status, duration)
		return err
	}

	log.Info("message handled", "duration_ms", time.Since(start).Milliseconds())
	metrics.RecordJobProcessed(stage, "success", duration)
	return nil
}
