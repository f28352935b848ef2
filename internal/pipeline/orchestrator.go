// Package pipeline runs one pull, transform and push cycle per invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/auth"
	"opensky-ingest/internal/credentials"
	"opensky-ingest/internal/fetcher"
	"opensky-ingest/internal/metrics"
	"opensky-ingest/internal/model"
	"opensky-ingest/pkg/logger"
	"opensky-ingest/pkg/utils"
)

// TokenAcquirer exchanges credentials for request authorization.
type TokenAcquirer interface {
	AcquireToken(ctx context.Context, creds credentials.Credentials) (auth.Authorization, error)
}

// StateFetcher retrieves the current state vectors.
type StateFetcher interface {
	FetchStates(ctx context.Context, authz auth.Authorization) fetcher.FetchResult
}

// Projector filters and converts state vectors.
type Projector interface {
	Project(states []model.StateVector) []model.TransportRecord
}

// Publisher delivers transport records to the stream.
type Publisher interface {
	Publish(ctx context.Context, records []model.TransportRecord) model.DeliveryReport
}

// Dependencies are the capabilities an Orchestrator drives. Nothing is
// looked up globally; tests substitute fakes here.
type Dependencies struct {
	Credentials credentials.Store
	SecretRef   string
	Tokens      TokenAcquirer
	Fetcher     StateFetcher
	Projector   Projector
	Publisher   Publisher

	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewInvocationID defaults to a random UUID.
	NewInvocationID func() string
}

// Orchestrator holds no state between runs.
type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) (*Orchestrator, error) {
	var missing []string
	if deps.Credentials == nil {
		missing = append(missing, "credentials")
	}
	if deps.Tokens == nil {
		missing = append(missing, "tokens")
	}
	if deps.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if deps.Projector == nil {
		missing = append(missing, "projector")
	}
	if deps.Publisher == nil {
		missing = append(missing, "publisher")
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.CodeConfigInvalid, fmt.Sprintf("missing dependencies: %v", missing))
	}

	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewInvocationID == nil {
		deps.NewInvocationID = func() string { return uuid.NewString() }
	}
	deps.Logger = deps.Logger.WithComponent("pipeline")
	return &Orchestrator{deps: deps}, nil
}

// Run executes one invocation. It always returns a Result; panics in any
// stage are converted to an internal error.
func (o *Orchestrator) Run(ctx context.Context) (res Result) {
	log := o.deps.Logger.WithFields(logger.Fields(logger.FieldInvocationID, o.deps.NewInvocationID()))
	start := o.deps.Clock()
	state := StateStart

	defer func() {
		if r := recover(); r != nil {
			err := apperr.Internal(fmt.Errorf("panic in %s: %v", state, r))
			log.Error("Pipeline panicked", logger.Fields(
				"state", state.String(),
				logger.FieldError, err.Error(),
				"stack", string(debug.Stack()),
			))
			res = failureResult(OutcomeInternalError, err, 0, nil, o.timestamp())
		}
		fields := logger.Fields(
			"outcome", string(res.Outcome),
			"status", res.StatusCode,
			"state", res.State.String(),
			logger.FieldDuration, o.deps.Clock().Sub(start).Milliseconds(),
		)
		if o.deps.Metrics != nil {
			for k, v := range o.deps.Metrics.GetSnapshot().Fields() {
				fields[k] = v
			}
		}
		log.Info("Invocation finished", fields)
	}()

	log.Info("Invocation started")

	creds, err := o.deps.Credentials.GetCredentials(ctx, o.deps.SecretRef)
	if err != nil {
		return o.authFailure(log, err)
	}
	authz, err := o.deps.Tokens.AcquireToken(ctx, creds)
	if err != nil {
		return o.authFailure(log, err)
	}
	state = StateTokenAcquired
	log.Debug("Token acquired", logger.Fields("auth_scheme", authz.Scheme()))

	fetched := o.deps.Fetcher.FetchStates(ctx, authz)
	if fetched.Empty() {
		err := apperr.Wrap(apperr.CodeFetchError, "no state vectors returned", fetched.Err)
		log.Warn("No data to process", logger.Fields("skipped", fetched.Skipped, "fetch_failed", fetched.Err != nil))
		return failureResult(OutcomeNoData, err, 0, nil, o.timestamp())
	}
	state = StateStatesFetched

	records := o.deps.Projector.Project(fetched.States)
	if o.deps.Metrics != nil {
		o.deps.Metrics.AddRecordsFiltered(len(fetched.States) - len(records))
	}
	log.Info("Transformed state vectors", logger.Fields("states", len(fetched.States), "records", len(records)))
	state = StateTransformed

	report := o.deps.Publisher.Publish(ctx, records)
	if !report.Delivered() {
		err := apperr.New(apperr.CodeDeliveryFailure, fmt.Sprintf(
			"%d of %d records failed in %d of %d batches",
			report.TotalFailedRecords, report.RecordsSubmitted,
			report.BatchesWithFailures, report.BatchesAttempted,
		))
		log.Error("Delivery incomplete", logger.ErrorFields(err))
		return failureResult(OutcomeDeliveryFailure, err, len(records), &report, o.timestamp())
	}

	return successResult(len(records), report, o.timestamp())
}

func (o *Orchestrator) authFailure(log *logger.Logger, err error) Result {
	// Anything the auth stages return outside the taxonomy is still an auth failure.
	if !errors.Is(err, apperr.ErrAuthUnavailable) && !errors.Is(err, apperr.ErrAuthRejected) {
		err = apperr.AuthUnavailable("credential lookup failed", err)
	}
	log.Error("Authorization failed", logger.ErrorFields(err))
	return failureResult(OutcomeAuthFailure, err, 0, nil, o.timestamp())
}

func (o *Orchestrator) timestamp() string {
	return utils.NowISO8601(o.deps.Clock)
}
