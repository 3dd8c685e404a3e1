package leads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/studio-site/pkg/logging"
)

// MaxBodyBytes caps the size of a lead submission body.
const MaxBodyBytes = 64 << 10

// Response messages returned to the submitter.
const (
	msgInvalidJSON = "Invalid JSON payload"
	msgConfig      = "Server configuration error"
	msgSaveFailed  = "Failed to save lead"
	msgSendFailed  = "Failed to send email"
)

// Notifier tells the studio about a saved lead.
type Notifier interface {
	NotifyLead(ctx context.Context, sub *Submission) error
}

// SubmissionObserver counts submissions by outcome.
type SubmissionObserver interface {
	ObserveSubmission(outcome string)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	notifier Notifier
	logger   *logging.Logger
	observer SubmissionObserver
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, notifier Notifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		notifier: notifier,
		logger:   logger.WithComponent("leads"),
	}
}

// WithObserver attaches a submission observer (metrics).
func (h *Handler) WithObserver(observer SubmissionObserver) *Handler {
	h.observer = observer
	return h
}

// Submit handles POST /api/lead. Origin and rate limit checks run as
// middleware in front of it.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "leads.submit")
	defer span.End()

	payload, err := decodePayload(w, r)
	if err != nil {
		h.logger.Warn("invalid lead payload", "error", err)
		h.finish(w, http.StatusBadRequest, "invalid_json", errorBody(msgInvalidJSON))
		return
	}

	sub, err := Validate(payload)
	if errors.Is(err, ErrHoneypot) {
		h.logger.Info("honeypot triggered, discarding lead")
		h.finish(w, http.StatusOK, "honeypot", okBody())
		return
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		h.finish(w, http.StatusBadRequest, "invalid", errorBody(vErr.Message))
		return
	}
	if err != nil {
		h.logger.Error("unexpected validation error", "error", err)
		h.finish(w, http.StatusBadRequest, "invalid", errorBody(msgInvalidJSON))
		return
	}
	span.SetAttributes(
		attribute.String("lead.id", sub.ID),
		attribute.String("lead.purpose", sub.Purpose.String()),
	)

	if err := h.checkConfig(); err != nil {
		h.logger.Error("lead intake misconfigured", "error", err)
		h.finish(w, http.StatusInternalServerError, "config_error", errorBody(msgConfig))
		return
	}

	// A client that disconnects mid-request must not leave a saved lead
	// without its notification.
	upstreamCtx := context.WithoutCancel(ctx)
	if err := h.repo.Create(upstreamCtx, sub); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to save lead", "lead_id", sub.ID, "error", err)
		h.finish(w, http.StatusBadGateway, "save_failed", errorBody(msgSaveFailed))
		return
	}

	if err := h.notifier.NotifyLead(upstreamCtx, sub); err != nil {
		span.RecordError(err)
		h.logger.Error("lead saved but notification failed", "lead_id", sub.ID, "error", err)
		h.finish(w, http.StatusBadGateway, "notify_failed", errorBody(msgSendFailed))
		return
	}

	h.logger.Info("lead accepted", "lead_id", sub.ID, "purpose", sub.Purpose)
	h.finish(w, http.StatusOK, "accepted", okBody())
}

func (h *Handler) checkConfig() error {
	if h.repo == nil {
		return errors.New("leads: repository not configured")
	}
	if h.notifier == nil {
		return errors.New("leads: notifier not configured")
	}
	for _, dep := range []any{h.repo, h.notifier} {
		if checker, ok := dep.(ConfigChecker); ok {
			if err := checker.CheckConfig(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) finish(w http.ResponseWriter, status int, outcome string, body any) {
	if h.observer != nil {
		h.observer.ObserveSubmission(outcome)
	}
	writeJSON(w, status, body)
}

// decodePayload reads a single JSON object from a size-capped body.
// Anything but whitespace after the object is rejected.
func decodePayload(w http.ResponseWriter, r *http.Request) (Payload, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("leads: trailing data after JSON payload")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("leads: payload is not a JSON object")
	}
	return Payload(obj), nil
}

func okBody() map[string]bool {
	return map[string]bool{"ok": true}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
