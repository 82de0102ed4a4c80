package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/unlocker"
)

// Handler exposes the three literal unlock routes from spec §6, wired to
// an *unlocker.Service.
type Handler struct {
	service *unlocker.Service
	now     func() time.Time
}

// NewHandler returns a Handler backed by service. now defaults to
// time.Now; tests may override it.
func NewHandler(service *unlocker.Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// Register binds the handler's routes onto mux using Go 1.22+ method+path
// patterns (spec §6).
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/entities/{entity}/beacons/{beacon}/unlocker", h.initiate)
	mux.HandleFunc("PUT /api/entities/{entity}/beacons/{beacon}/unlocker/{instance}/status", h.status)
	mux.HandleFunc("PUT /api/entities/{entity}/beacons/{beacon}/unlocker/{instance}/outcome", h.outcome)
}

type initiateBody struct {
	DeviceID string `json:"device_id"`
	Payload  string `json:"payload"` // base64(beacon_nonce || beacon_sig_tail)
}

type initiateResponse struct {
	InstanceID   string `json:"instance_id"`
	ChallengeHex string `json:"challenge_hex"`
}

func (h *Handler) initiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingBearerToken)
		return
	}

	var body initiateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, unlocker.ErrMalformedPayload)
		return
	}
	payload, err := base64.StdEncoding.DecodeString(body.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, unlocker.ErrMalformedPayload)
		return
	}

	res, err := h.service.Initiate(r.Context(), unlocker.InitiateRequest{
		EntityID: r.PathValue("entity"),
		BeaconID: r.PathValue("beacon"),
		UserID:   userID,
		DeviceID: body.DeviceID,
		Payload:  payload,
		Now:      h.now(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initiateResponse{
		InstanceID:   res.InstanceID,
		ChallengeHex: res.ChallengeHex,
	})
}

type statusBody struct {
	Payload string `json:"payload"` // base64(device_signature || timestamp)
}

type statusResponse struct {
	Blob string `json:"blob"` // base64(server_signature || beacon_verifier)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingBearerToken)
		return
	}

	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, unlocker.ErrMalformedPayload)
		return
	}
	payload, err := base64.StdEncoding.DecodeString(body.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, unlocker.ErrMalformedPayload)
		return
	}

	res, err := h.service.Status(r.Context(), unlocker.StatusRequest{
		InstanceID: r.PathValue("instance"),
		UserID:     userID,
		Payload:    payload,
		Now:        h.now(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Blob: base64.StdEncoding.EncodeToString(res.Blob[:]),
	})
}

type outcomeBody struct {
	Success bool   `json:"success"`
	Outcome string `json:"outcome"`
}

func (h *Handler) outcome(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrMissingBearerToken)
		return
	}

	var body outcomeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, unlocker.ErrMalformedPayload)
		return
	}

	err := h.service.Outcome(r.Context(), unlocker.OutcomeRequest{
		InstanceID: r.PathValue("instance"),
		UserID:     userID,
		Success:    body.Success,
		Outcome:    body.Outcome,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
