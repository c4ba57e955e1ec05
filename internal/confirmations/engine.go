// Package confirmations drives pending mobile confirmations to a desired
// state with a bounded retry budget.
package confirmations

import (
	"context"
	"time"

	"botfarm/internal/core"
	"botfarm/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Engine polls the pending-confirmation set for one account, filters it,
// and commits accept/decline batches until convergence or the shared try
// budget runs out.
type Engine struct {
	account    string
	remote     core.IRemoteClient
	registry   core.IKeyRegistry
	logger     core.ILogger
	maxTries   int
	retryDelay time.Duration

	// OTel
	tracer         trace.Tracer
	handledCounter metric.Int64Counter
	failCounter    metric.Int64Counter
}

// NewEngine creates a reconciliation engine for one account. maxTries is
// the shared retry budget; retryDelay separates polling iterations.
func NewEngine(
	account string,
	remote core.IRemoteClient,
	registry core.IKeyRegistry,
	logger core.ILogger,
	maxTries int,
	retryDelay time.Duration,
) *Engine {
	tracer := telemetry.GetTracer("confirmations-engine")
	meter := telemetry.GetMeter("confirmations-engine")

	handledCounter, _ := meter.Int64Counter("confirmations_handled_total",
		metric.WithDescription("Total number of confirmations committed"))
	failCounter, _ := meter.Int64Counter("confirmations_failures_total",
		metric.WithDescription("Total number of failed confirmation operations"))

	return &Engine{
		account:        account,
		remote:         remote,
		registry:       registry,
		logger:         logger.WithField("component", "confirmations").WithField("account", account),
		maxTries:       maxTries,
		retryDelay:     retryDelay,
		tracer:         tracer,
		handledCounter: handledCounter,
		failCounter:    failCounter,
	}
}

// Handle fetches, filters and commits pending confirmations.
//
// acceptedType narrows the batch to one confirmation type
// (core.ConfirmationUnknown matches everything). creatorIDs, when
// non-empty, is an allow-list: only confirmations created by those IDs
// are committed, and with waitIfNeeded the engine keeps polling until
// every listed creator has been handled or the try budget is exhausted.
// Without waitIfNeeded exactly one pass is made and whatever it managed
// to commit is reported as success.
//
// The returned map is keyed by creator ID and always reflects the
// confirmations committed so far, including on failure paths. For a
// creator with several confirmations in one batch the last one committed
// wins; the map tracks creators, not confirmation identities.
func (e *Engine) Handle(
	ctx context.Context,
	accept bool,
	acceptedType core.ConfirmationType,
	creatorIDs []uint64,
	waitIfNeeded bool,
) (map[uint64]*core.Confirmation, core.Result) {
	ctx, span := e.tracer.Start(ctx, "HandleConfirmations",
		trace.WithAttributes(
			attribute.String("account", e.account),
			attribute.Bool("accept", accept),
			attribute.Bool("wait_if_needed", waitIfNeeded),
		),
	)
	defer span.End()

	handled := make(map[uint64]*core.Confirmation)

	secret, err := e.registry.GetSecret(ctx, e.account)
	if err != nil {
		e.failCounter.Add(ctx, 1)
		return handled, core.Fail("failed to read confirmation secret: %v", err)
	}
	if len(secret) == 0 {
		return handled, core.Fail("mobile authenticator is not available")
	}

	required := make(map[uint64]struct{}, len(creatorIDs))
	for _, id := range creatorIDs {
		required[id] = struct{}{}
	}

	tries := 1
	if waitIfNeeded {
		tries = e.maxTries
	}

	for attempt := 0; attempt < tries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return handled, core.Fail("canceled: %v", ctx.Err())
			case <-time.After(e.retryDelay):
			}
		}

		confirmations, err := e.remote.GetConfirmations(ctx)
		if err != nil {
			// Not fatal: absence of confirmations means nothing to do
			// this iteration.
			e.logger.Warn("Failed to fetch confirmations", "attempt", attempt+1, "error", err)
			continue
		}

		batch := filterByType(confirmations, acceptedType)
		if len(batch) == 0 {
			continue
		}

		batch = filterByCreators(batch, required)
		if len(batch) == 0 {
			continue
		}

		if err := e.remote.HandleConfirmations(ctx, batch, accept); err != nil {
			// A commit failure aborts the whole operation; prior
			// iterations' results still surface to the caller.
			e.failCounter.Add(ctx, 1)
			e.logger.Error("Failed to commit confirmation batch",
				"count", len(batch), "accept", accept, "error", err)
			return handled, core.Fail("failed to commit %d confirmation(s): %v", len(batch), err)
		}

		for _, confirmation := range batch {
			handled[confirmation.CreatorID] = confirmation
		}
		e.handledCounter.Add(ctx, int64(len(batch)),
			metric.WithAttributes(attribute.Bool("accept", accept)))
		e.logger.Info("Committed confirmation batch", "count", len(batch), "accept", accept)

		if len(required) == 0 {
			// No allow-list: any successful non-empty commit converges.
			return handled, core.OK("handled %d confirmation(s)", len(handled))
		}

		if coversAll(handled, required) {
			return handled, core.OK("handled %d confirmation(s)", len(handled))
		}
	}

	if waitIfNeeded {
		e.failCounter.Add(ctx, 1)
		return handled, core.Fail("too many attempts; handled %d confirmation(s)", len(handled))
	}

	return handled, core.OK("single pass done; handled %d confirmation(s)", len(handled))
}

// filterByType keeps confirmations matching acceptedType.
// ConfirmationUnknown acts as a wildcard.
func filterByType(confirmations []*core.Confirmation, acceptedType core.ConfirmationType) []*core.Confirmation {
	if acceptedType == core.ConfirmationUnknown {
		return confirmations
	}

	result := confirmations[:0:0]
	for _, confirmation := range confirmations {
		if confirmation.Type == acceptedType {
			result = append(result, confirmation)
		}
	}
	return result
}

// filterByCreators keeps confirmations whose creator is in the allow-list.
// An empty allow-list keeps everything.
func filterByCreators(confirmations []*core.Confirmation, required map[uint64]struct{}) []*core.Confirmation {
	if len(required) == 0 {
		return confirmations
	}

	result := confirmations[:0:0]
	for _, confirmation := range confirmations {
		if _, ok := required[confirmation.CreatorID]; ok {
			result = append(result, confirmation)
		}
	}
	return result
}

func coversAll(handled map[uint64]*core.Confirmation, required map[uint64]struct{}) bool {
	for id := range required {
		if _, ok := handled[id]; !ok {
			return false
		}
	}
	return true
}
