package deliveryreport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"transmit/internal/types"
)

// maxBodySize bounds a report batch (256 KB).
const maxBodySize = 256 << 10

// Batch is the request body. It holds at most 500 reports.
type Batch struct {
	Reports []Report `json:"reports" validate:"required,min=1,max=500,dive"`
}

// HandlerConfig wires a Handler. Signer is optional; without it requests
// are accepted unsigned.
type HandlerConfig struct {
	Sink    Sink
	Signer  *Signer
	Metrics Metrics
	Logger  types.Logger
	Clock   types.Clock
}

// Handler serves POST /delivery-reports/{providerID}.
type Handler struct {
	sink     Sink
	signer   *Signer
	metrics  Metrics
	logger   types.Logger
	clock    types.Clock
	validate *validator.Validate
}

func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		sink:     cfg.Sink,
		signer:   cfg.Signer,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		validate: validator.New(),
	}
	if h.logger == nil {
		h.logger = types.NopLogger{}
	}
	if h.sink == nil {
		h.sink = LogSink{Logger: h.logger}
	}
	if h.clock == nil {
		h.clock = types.RealClock{}
	}
	return h
}

// RegisterRoutes mounts the report routes onto r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/delivery-reports/{providerID}", h.Receive)
}

// Router returns a chi router serving only the report routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

type receiveResponse struct {
	Accepted int `json:"accepted"`
}

// Receive handles one report batch. It answers 202 once every report has
// been recorded; a sink failure stops the batch with 500 so the provider
// redelivers it.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, types.NewAppError(types.ErrCodeInvalidArgument, "request body too large or unreadable", err))
		return
	}

	if h.signer != nil {
		if err := h.signer.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
			h.logger.Warn("delivery report signature rejected", "provider", providerID, "error", err.Error())
			writeError(w, err)
			return
		}
	}

	batch, err := h.decode(body)
	if err != nil {
		writeError(w, err)
		return
	}

	for i, rep := range batch.Reports {
		rep.ProviderID = providerID
		if rep.Timestamp.IsZero() {
			rep.Timestamp = h.clock.Now()
		}
		if err := h.sink.Record(r.Context(), rep); err != nil {
			h.logger.Error("delivery report sink failed",
				"provider", providerID,
				"dispatch_id", rep.DispatchID,
				"recorded", i,
				"error", err.Error(),
			)
			writeError(w, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to record delivery report", err))
			return
		}
		if h.metrics != nil {
			h.metrics.RecordReport(r.Context(), providerID, rep.Status)
		}
	}

	writeJSON(w, http.StatusAccepted, receiveResponse{Accepted: len(batch.Reports)})
}

func (h *Handler) decode(body []byte) (*Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var batch Batch
	if err := dec.Decode(&batch); err != nil {
		return nil, types.NewAppError(types.ErrCodeInvalidArgument, "malformed report batch", err)
	}
	if err := h.validate.Struct(batch); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeInvalidArgument,
				"invalid report batch", err,
				map[string]any{"field": verrs[0].Namespace(), "rule": verrs[0].Tag()})
		}
		return nil, types.NewAppError(types.ErrCodeInvalidArgument, "invalid report batch", err)
	}
	for i, rep := range batch.Reports {
		if !rep.Status.Valid() {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeInvalidArgument,
				fmt.Sprintf("unknown delivery status %q", rep.Status), nil,
				map[string]any{"index": i})
		}
	}
	return &batch, nil
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err. Internal failures never expose their message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		appErr = types.NewAppError(types.ErrCodeInternalUnexpected, "internal error", err)
	}
	status := appErr.Code.HTTPStatus()
	detail := errorDetail{Code: string(appErr.Code), Message: appErr.Message, Details: appErr.Details}
	if status >= http.StatusInternalServerError {
		detail = errorDetail{Code: string(types.ErrCodeInternalUnexpected), Message: "internal error"}
	}
	writeJSON(w, status, errorBody{Error: detail})
}
