package webui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"spooktrunt/codex"
	"spooktrunt/logging"
	"spooktrunt/metrics"
	"spooktrunt/shutdown"
	"spooktrunt/studio"
	"spooktrunt/vision"

	"go.uber.org/zap"
)

// Error codes returned in APIError.Code.
const (
	CodeBadRequest   = "bad_request"
	CodeBusy         = "busy"
	CodePrecondition = "precondition"
	CodeNotFound     = "not_found"
	CodeTooLarge     = "too_large"
	CodeUnsupported  = "unsupported_media"
	CodeInvalidImage = "invalid_image"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// APIError is the JSON body of every non-2xx API response. Snapshot is
// included when the studio state is relevant to the failure, e.g. a guard
// message the view should display.
type APIError struct {
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Snapshot *studio.Snapshot `json:"snapshot,omitempty"`
}

// APIConfig bounds request sizes.
type APIConfig struct {
	// MaxUploadBytes caps a blueprint upload (default: 20MB)
	MaxUploadBytes int64

	// BlueprintMaxEdge is the downscale threshold in pixels (default: 2048).
	// Zero disables downscaling.
	BlueprintMaxEdge int

	// MaxJSONBytes caps PUT bodies (default: 64KB)
	MaxJSONBytes int64
}

// DefaultAPIConfig returns the default limits.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		MaxUploadBytes:   20 << 20,
		BlueprintMaxEdge: 2048,
		MaxJSONBytes:     64 << 10,
	}
}

// StudioAPI serves the JSON endpoints over the caller's studio. Every
// handler resolves the session from the cookie, creating one if needed.
type StudioAPI struct {
	sessions *SessionStore
	lore     *codex.Codex
	store    *metrics.Store
	config   APIConfig
	logger   *logging.Logger
}

// NewStudioAPI creates the API handlers.
func NewStudioAPI(sessions *SessionStore, lore *codex.Codex, store *metrics.Store, config APIConfig, logger *logging.Logger) *StudioAPI {
	defaults := DefaultAPIConfig()
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if config.BlueprintMaxEdge < 0 {
		config.BlueprintMaxEdge = defaults.BlueprintMaxEdge
	}
	if config.MaxJSONBytes <= 0 {
		config.MaxJSONBytes = defaults.MaxJSONBytes
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StudioAPI{
		sessions: sessions,
		lore:     lore,
		store:    store,
		config:   config,
		logger:   logger.Named("api"),
	}
}

// RegisterRoutes registers the API endpoints on mux.
func (a *StudioAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", a.handleState)
	mux.HandleFunc("PUT /api/prompt", a.handlePrompt)
	mux.HandleFunc("PUT /api/mode", a.handleMode)
	mux.HandleFunc("PUT /api/panel", a.handlePanel)
	mux.HandleFunc("POST /api/blueprint", a.handleBlueprintUpload)
	mux.HandleFunc("DELETE /api/blueprint", a.handleBlueprintClear)
	mux.HandleFunc("POST /api/summon", a.handleOperation("summon", (*studio.Studio).Summon))
	mux.HandleFunc("POST /api/revive", a.handleOperation("revive", (*studio.Studio).Revive))
	mux.HandleFunc("POST /api/analyze", a.handleOperation("analyze", (*studio.Studio).Analyze))
	mux.HandleFunc("POST /api/gallery/{id}/select", a.handleSelect)
	mux.HandleFunc("GET /api/gallery/{id}/image", a.handleImage)
	mux.HandleFunc("GET /api/codex", a.handleCodex)
}

func (a *StudioAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Summary(a.sessions.Count()))
}

func (a *StudioAPI) handleState(w http.ResponseWriter, r *http.Request) {
	_, st := a.sessions.Resolve(w, r)
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (a *StudioAPI) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	_, st := a.sessions.Resolve(w, r)
	st.SetPrompt(body.Prompt)
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (a *StudioAPI) handleMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode studio.Mode `json:"mode"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	_, st := a.sessions.Resolve(w, r)
	if err := st.SetMode(body.Mode); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (a *StudioAPI) handlePanel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Panel studio.Panel `json:"panel"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	_, st := a.sessions.Resolve(w, r)
	if err := st.SetPanel(body.Panel); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

// handleBlueprintUpload accepts a multipart upload in field "blueprint" and
// stores the encoded image for the next revival.
func (a *StudioAPI) handleBlueprintUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)
	file, header, err := r.FormFile("blueprint")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
				"blueprint exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", nil)
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"blueprint\" is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "blueprint is too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "could not read blueprint", nil)
		return
	}

	payload, err := vision.EncodeBlueprint(data, a.config.BlueprintMaxEdge)
	switch {
	case err == nil:
	case errors.Is(err, vision.ErrEmptyImage):
		writeError(w, http.StatusBadRequest, CodeBadRequest, "blueprint is empty", nil)
		return
	case errors.Is(err, vision.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, CodeUnsupported, "blueprint must be a PNG, JPEG, GIF or WebP image", nil)
		return
	default:
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidImage, "blueprint could not be decoded", nil)
		return
	}

	sessionID, st := a.sessions.Resolve(w, r)
	st.SetBlueprint(header.Filename, payload, len(data))
	a.logger.Debug("blueprint stored",
		logging.SessionID(sessionID),
		zap.String("name", header.Filename),
		zap.String("mime_type", payload.MIMEType),
		zap.Int("bytes", len(data)))
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (a *StudioAPI) handleBlueprintClear(w http.ResponseWriter, r *http.Request) {
	_, st := a.sessions.Resolve(w, r)
	st.ClearBlueprint()
	writeJSON(w, http.StatusOK, st.Snapshot())
}

// handleOperation starts a background studio operation and answers 202 with
// the snapshot taken right after the first transition.
func (a *StudioAPI) handleOperation(op string, start func(*studio.Studio, context.Context) (<-chan struct{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, st := a.sessions.Resolve(w, r)
		_, err := start(st, r.Context())
		snap := st.Snapshot()

		switch {
		case err == nil:
			writeJSON(w, http.StatusAccepted, snap)
		case errors.Is(err, studio.ErrBusy):
			writeError(w, http.StatusConflict, CodeBusy, err.Error(), &snap)
		case errors.Is(err, studio.ErrEmptyPrompt),
			errors.Is(err, studio.ErrReviveIncomplete),
			errors.Is(err, studio.ErrNothingToAnalyze):
			writeError(w, http.StatusUnprocessableEntity, CodePrecondition, snap.Error, &snap)
		case errors.Is(err, shutdown.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, CodeUnavailable, snap.Error, &snap)
		default:
			a.logger.Error("operation could not start",
				logging.Operation(op),
				logging.SessionID(sessionID),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, CodeInternal, "operation could not start", &snap)
		}
	}
}

func (a *StudioAPI) handleSelect(w http.ResponseWriter, r *http.Request) {
	_, st := a.sessions.Resolve(w, r)
	err := st.Select(r.PathValue("id"))
	snap := st.Snapshot()

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, studio.ErrBusy):
		writeError(w, http.StatusConflict, CodeBusy, err.Error(), &snap)
	case errors.Is(err, studio.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error(), &snap)
	default:
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), &snap)
	}
}

// handleImage serves the rendered image of a gallery entry. Entries never
// change, so the response may be cached by the browser.
func (a *StudioAPI) handleImage(w http.ResponseWriter, r *http.Request) {
	_, st := a.sessions.Resolve(w, r)
	entry, ok := st.Entry(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, studio.ErrEntryNotFound.Error(), nil)
		return
	}
	w.Header().Set("Content-Type", entry.Image.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.Image.Data)))
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Image.Data)
}

type codexResponse struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Entries  []codex.Entry `json:"entries"`
}

func (a *StudioAPI) handleCodex(w http.ResponseWriter, r *http.Request) {
	entries := a.lore.Search(r.URL.Query().Get("q"))
	if entries == nil {
		entries = []codex.Entry{}
	}
	writeJSON(w, http.StatusOK, codexResponse{
		Title:    a.lore.Title,
		Subtitle: a.lore.Subtitle,
		Entries:  entries,
	})
}

// decode reads a JSON body into v, writing a 400 on failure.
func (a *StudioAPI) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, "request body is too large", nil)
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, snap *studio.Snapshot) {
	writeJSON(w, status, APIError{Code: code, Message: message, Snapshot: snap})
}
