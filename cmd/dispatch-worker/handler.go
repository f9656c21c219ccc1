package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-lambda-go/events"

	"transmit/internal/dispatch"
	"transmit/internal/types"
)

// Dispatcher is the subset of *dispatch.Dispatcher the handler needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, dc *types.DispatchContext) (dispatch.Results, error)
}

// Handler consumes dispatch requests from SQS.
type Handler struct {
	dispatcher Dispatcher
	logger     types.Logger
}

// Handle processes each record independently. A record is reported as a
// batch failure only when some channel failed for a retryable reason, so SQS
// redelivers it. Malformed requests and permanent failures are acknowledged.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("dispatch will be retried",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	logger := h.logger.With("message_id", record.MessageId)

	var req dispatch.Request
	if err := json.Unmarshal([]byte(record.Body), &req); err != nil {
		logger.Error("discarding malformed dispatch request", "error", err.Error())
		return nil
	}

	dc, err := req.DispatchContext()
	if err != nil {
		logger.Error("discarding invalid dispatch request", "error", err.Error())
		return nil
	}

	results, err := h.dispatcher.Dispatch(ctx, dc)
	if err != nil {
		// Cancellation or deadline: let SQS redeliver.
		return err
	}

	var retryable []error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if types.CodeOf(r.Err).Retryable() {
			retryable = append(retryable, r.Err)
			continue
		}
		logger.Warn("channel failed permanently",
			"channel", string(r.Channel),
			"code", string(types.CodeOf(r.Err)),
			"error", r.Err.Error(),
		)
	}
	return errors.Join(retryable...)
}
