package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/de-tools/cloud-warden/pkg/adapters"
	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/services/catalog"
	"github.com/de-tools/cloud-warden/pkg/services/compliance"
	"github.com/de-tools/cloud-warden/pkg/services/engine"
)

// Runner triggers whole-account evaluation runs; *engine.Evaluator is the
// production implementation.
type Runner interface {
	Run(ctx context.Context, accountID string) (*domain.RunSummary, error)
}

type Handler struct {
	compliance compliance.Service
	catalog    catalog.Service
	evaluator  Runner
}

func NewHandler(complianceSvc compliance.Service, catalogSvc catalog.Service, evaluator Runner) *Handler {
	return &Handler{
		compliance: complianceSvc,
		catalog:    catalogSvc,
		evaluator:  evaluator,
	}
}

func (h *Handler) TriggerEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")

	summary, err := h.evaluator.Run(ctx, account)
	if err != nil {
		if errors.Is(err, engine.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		logger.Error().Err(err).Str("account", account).Msg("evaluation run failed")
		http.Error(w, "evaluation run failed", http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(adapters.MapRunSummaryDomainToApi(*summary)); err != nil {
		logger.Error().Err(err).Msg("failed to encode run summary")
	}
}

func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")

	findings, err := h.compliance.ListFindings(ctx, account)
	if err != nil {
		logger.Error().Err(err).Str("account", account).Msg("failed to list findings")
		http.Error(w, "failed to list findings", http.StatusInternalServerError)
		return
	}

	response := make([]api.Finding, 0, len(findings))
	for _, f := range findings {
		response = append(response, adapters.MapFindingDomainToApi(f))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode findings")
	}
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")

	rules, err := h.catalog.ListRules(ctx, account)
	if err != nil {
		logger.Error().Err(err).Str("account", account).Msg("failed to list rules")
		http.Error(w, "failed to list rules", http.StatusInternalServerError)
		return
	}

	response := make([]api.Rule, 0, len(rules))
	for _, r := range rules {
		response = append(response, adapters.MapRuleDomainToApi(r.Rule, r.Active))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode rules")
	}
}

func (h *Handler) ApplyProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")
	profile := chi.URLParam(r, "profile")

	application, err := h.catalog.ApplyProfile(ctx, account, profile)
	if err != nil {
		logger.Error().Err(err).
			Str("account", account).
			Str("profile", profile).
			Msg("failed to apply profile")
		http.Error(w, "failed to apply profile", http.StatusInternalServerError)
		return
	}

	response := api.ProfileApplication{
		AccountID: account,
		ProfileID: application.ProfileID,
		Enabled:   application.Enabled,
		Disabled:  application.Disabled,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode profile application")
	}
}

func (h *Handler) ScoreHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")
	limit := queryInt(r, "limit")

	entries, err := h.compliance.ScoreHistory(ctx, account, limit)
	if err != nil {
		logger.Error().Err(err).Str("account", account).Msg("failed to list score history")
		http.Error(w, "failed to list score history", http.StatusInternalServerError)
		return
	}

	response := make([]api.ScoreHistoryEntry, 0, len(entries))
	for _, e := range entries {
		response = append(response, adapters.MapScoreEntryDomainToApi(e))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode score history")
	}
}

func (h *Handler) ResourceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	account := chi.URLParam(r, "account")
	resource := chi.URLParam(r, "resource")
	limit := queryInt(r, "limit")

	entries, err := h.compliance.ResourceHistory(ctx, account, resource, limit)
	if err != nil {
		logger.Error().Err(err).
			Str("account", account).
			Str("resource", resource).
			Msg("failed to list resource history")
		http.Error(w, "failed to list resource history", http.StatusInternalServerError)
		return
	}

	response := make([]api.ResourceHistoryEntry, 0, len(entries))
	for _, e := range entries {
		response = append(response, adapters.MapResourceEntryDomainToApi(e))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode resource history")
	}
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	finding := chi.URLParam(r, "finding")

	// The note is optional, so an empty body is a valid request.
	var req api.AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if h.requireFinding(w, r, finding) != nil {
		return
	}
	if err := h.compliance.Acknowledge(ctx, finding, req.Author, req.Note); err != nil {
		logger.Error().Err(err).Str("finding", finding).Msg("failed to acknowledge finding")
		http.Error(w, "failed to acknowledge finding", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Unacknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	finding := chi.URLParam(r, "finding")

	if h.requireFinding(w, r, finding) != nil {
		return
	}
	if err := h.compliance.Unacknowledge(ctx, finding); err != nil {
		logger.Error().Err(err).Str("finding", finding).Msg("failed to unacknowledge finding")
		http.Error(w, "failed to unacknowledge finding", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	finding := chi.URLParam(r, "finding")

	var req api.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "note text is required", http.StatusBadRequest)
		return
	}

	if h.requireFinding(w, r, finding) != nil {
		return
	}
	note, err := h.compliance.AddNote(ctx, finding, req.Author, req.Text)
	if err != nil {
		logger.Error().Err(err).Str("finding", finding).Msg("failed to add note")
		http.Error(w, "failed to add note", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	response := adapters.MapNoteDomainToApi(*note)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode note")
	}
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	finding := chi.URLParam(r, "finding")

	notes, err := h.compliance.ListNotes(ctx, finding)
	if err != nil {
		logger.Error().Err(err).Str("finding", finding).Msg("failed to list notes")
		http.Error(w, "failed to list notes", http.StatusInternalServerError)
		return
	}

	response := make([]api.FindingNote, 0, len(notes))
	for _, n := range notes {
		response = append(response, adapters.MapNoteDomainToApi(n))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode notes")
	}
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	note := chi.URLParam(r, "note")

	if err := h.compliance.DeleteNote(ctx, note); err != nil {
		logger.Error().Err(err).Str("note", note).Msg("failed to delete note")
		http.Error(w, "note not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireFinding 404s when the finding id is unknown. Returns a non-nil
// error when the response has already been written.
func (h *Handler) requireFinding(w http.ResponseWriter, r *http.Request, id string) error {
	f, err := h.compliance.GetFinding(r.Context(), id)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("finding", id).Msg("failed to load finding")
		http.Error(w, "failed to load finding", http.StatusInternalServerError)
		return err
	}
	if f == nil {
		http.Error(w, "finding not found", http.StatusNotFound)
		return errNotFound
	}
	return nil
}

var errNotFound = errors.New("not found")

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
