package api

import (
	"errors"
	"log/slog"
	"net/http"

	"govflow/authz"
	"govflow/profile"
	"govflow/store"
)

// TokenVerifier validates a bearer token and yields the caller's profile
// id plus the stored access level and role. *profile.Service satisfies it.
type TokenVerifier interface {
	VerifyToken(token string) (string, authz.AccessLevel, authz.AccountRole, error)
}

// Handler serves the governance backend's REST surface. The routes
// mirror the contract the store.HTTPClient consumes, so a client pointed
// at this handler round-trips through the same wire records.
type Handler struct {
	store    store.Client
	profiles *profile.Service
	log      *slog.Logger
	verify   TokenVerifier
}

// NewHandler builds the HTTP handler. profiles may be nil when the
// identity endpoints are not needed, for example in tests.
func NewHandler(st store.Client, profiles *profile.Service, logger *slog.Logger, verify TokenVerifier) http.Handler {
	h := &Handler{store: st, profiles: profiles, log: logger, verify: verify}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)

	mux.Handle("GET /approvalflow/approver/{profileId}", h.authed(h.handleFlowsForReviewer))
	mux.Handle("GET /approvalflowparticipant", h.authed(h.handleParticipants))
	mux.Handle("PUT /approvalflowparticipant/{id}", h.authed(h.handleUpdateParticipant))
	mux.Handle("PUT /approvalflow/{approvalId}", h.authed(h.handleUpdateFlow))
	mux.Handle("POST /approvalflow/reject/{approvalId}", h.authed(h.handleReject))
	mux.Handle("POST /approvalflow/decision/{approvalId}", h.authed(h.handleDecision))
	mux.Handle("GET /approvalflowlog/search", h.authed(h.handleResourceSearch))

	return mux
}

func (h *Handler) handleFlowsForReviewer(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("profileId")

	views, err := h.store.FlowsForReviewer(r.Context(), profileID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	recs := make([]store.FlowRecord, 0, len(views))
	for _, v := range views {
		recs = append(recs, store.NewFlowViewRecord(v))
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	approvalID := r.URL.Query().Get("approvalId")

	parts, err := h.store.Participants(r.Context(), approvalID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	recs := make([]store.ParticipantRecord, 0, len(parts))
	for _, p := range parts {
		recs = append(recs, store.NewParticipantRecord(p))
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) handleUpdateParticipant(w http.ResponseWriter, r *http.Request) {
	var rec store.ParticipantRecord
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	p := rec.Participant()
	p.ID = r.PathValue("id")

	updated, err := h.store.UpdateParticipant(r.Context(), p)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.NewParticipantRecord(updated))
}

func (h *Handler) handleUpdateFlow(w http.ResponseWriter, r *http.Request) {
	var rec store.FlowRecord
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	f := rec.Flow()
	f.ApprovalID = r.PathValue("approvalId")

	updated, err := h.store.UpdateFlow(r.Context(), f)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.NewFlowRecord(updated))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var req store.RejectRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	res, err := h.store.Reject(r.Context(), r.PathValue("approvalId"), req.ProfileID, req.Comment)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.RejectResponse{
		AffectedParticipants: res.AffectedParticipants,
		AffectedResources:    res.AffectedResources,
	})
}

// handleDecision exposes the atomic decision path. Stores without that
// capability answer 501 so clients fall back to the orchestrated calls.
func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	recorder, ok := h.store.(store.DecisionRecorder)
	if !ok {
		writeError(w, http.StatusNotImplemented, "not_supported", "store does not support atomic decisions")
		return
	}

	var req store.DecisionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	status, err := recorder.RecordDecision(r.Context(), r.PathValue("approvalId"), req.ProfileID, req.Comment)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.DecisionResponse{Status: string(status)})
}

func (h *Handler) handleResourceSearch(w http.ResponseWriter, r *http.Request) {
	approvalID := r.URL.Query().Get("approvalId")

	links, err := h.store.ResourceLinks(r.Context(), approvalID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	recs := make([]store.ResourceRecord, 0, len(links))
	for _, l := range links {
		recs = append(recs, store.NewResourceRecord(l))
	}
	writeJSON(w, http.StatusOK, recs)
}

type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	AccessLevel string `json:"access_level"`
	Role        string `json:"role"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Profile profileResponse `json:"profile"`
}

func newProfileResponse(p profile.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		Email:       p.Email,
		FullName:    p.FullName,
		AccessLevel: p.AccessLevel.String(),
		Role:        p.Role.String(),
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		writeError(w, http.StatusNotImplemented, "not_supported", "identity endpoints disabled")
		return
	}

	var req profile.RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	p, err := h.profiles.Register(r.Context(), req)
	switch {
	case errors.Is(err, profile.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "weak_password", err.Error())
	case errors.Is(err, profile.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email", err.Error())
	case err != nil:
		h.log.Error("register failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_request", "registration failed")
	default:
		writeJSON(w, http.StatusCreated, newProfileResponse(*p))
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		writeError(w, http.StatusNotImplemented, "not_supported", "identity endpoints disabled")
		return
	}

	var req profile.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	res, err := h.profiles.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, profile.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		h.log.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, Profile: newProfileResponse(res.Profile)})
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses.
// The mapping is the inverse of what store.HTTPClient classifies, so
// errors survive a round trip through the wire.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusPreconditionFailed, "invalid_state", err.Error())
	default:
		h.log.Error("store operation failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
