package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"opensky-ingest/internal/apperr"
	"opensky-ingest/internal/model"
	"opensky-ingest/pkg/utils"
)

// State is a step of one invocation.
type State int

const (
	StateStart State = iota
	StateTokenAcquired
	StateStatesFetched
	StateTransformed
	StateDelivered
	StateFailed
)

var stateNames = [...]string{"start", "token_acquired", "states_fetched", "transformed", "delivered", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome classifies a terminal result.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeAuthFailure     Outcome = "auth_failure"
	OutcomeNoData          Outcome = "no_data"
	OutcomeDeliveryFailure Outcome = "delivery_failure"
	OutcomeConfigInvalid   Outcome = "config_invalid"
	OutcomeInternalError   Outcome = "internal_error"
)

// Result is what an invocation returns to its host. It marshals to the
// {"statusCode", "body"} shape expected by Lambda proxies; Body is a JSON
// document encoded as a string.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`

	Outcome Outcome              `json:"-"`
	State   State                `json:"-"`
	Report  model.DeliveryReport `json:"-"`
}

// Succeeded reports whether every record was delivered.
func (r Result) Succeeded() bool { return r.Outcome == OutcomeSuccess }

type successBody struct {
	Message         string `json:"message"`
	StatesProcessed int    `json:"states_processed"`
	Timestamp       string `json:"timestamp"`
}

type errorBody struct {
	Error           apperr.Code           `json:"error"`
	Message         string                `json:"message"`
	StatesProcessed int                   `json:"states_processed"`
	Delivery        *model.DeliveryReport `json:"delivery,omitempty"`
	Timestamp       string                `json:"timestamp"`
}

func encodeBody(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q,"message":%q}`, apperr.CodeInternal, err.Error())
	}
	return string(data)
}

func successResult(processed int, report model.DeliveryReport, timestamp string) Result {
	return Result{
		StatusCode: http.StatusOK,
		Body: encodeBody(successBody{
			Message:         fmt.Sprintf("Successfully processed %d state vectors", processed),
			StatesProcessed: processed,
			Timestamp:       timestamp,
		}),
		Outcome: OutcomeSuccess,
		State:   StateDelivered,
		Report:  report,
	}
}

func failureResult(outcome Outcome, err error, processed int, report *model.DeliveryReport, timestamp string) Result {
	code := apperr.CodeOf(err)
	status := apperr.StatusFor(code)
	if outcome == OutcomeDeliveryFailure && report != nil && report.TotalFailedRecords < report.RecordsSubmitted {
		status = http.StatusMultiStatus
	}

	res := Result{
		StatusCode: status,
		Body: encodeBody(errorBody{
			Error:           code,
			Message:         err.Error(),
			StatesProcessed: processed,
			Delivery:        report,
			Timestamp:       timestamp,
		}),
		Outcome: outcome,
		State:   StateFailed,
	}
	if report != nil {
		res.Report = *report
	}
	return res
}

// ConfigFailure builds the result for an invocation that could not be
// wired, e.g. because its configuration is invalid.
func ConfigFailure(err error) Result {
	if !errors.Is(err, apperr.ErrConfigInvalid) {
		err = apperr.Wrap(apperr.CodeConfigInvalid, "invalid configuration", err)
	}
	return failureResult(OutcomeConfigInvalid, err, 0, nil, utils.NowISO8601(nil))
}
