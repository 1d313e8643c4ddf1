package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/damjan1996/scanintake/internal/intake/service"
	"github.com/damjan1996/scanintake/internal/intake/store"
	"github.com/damjan1996/scanintake/internal/intake/types"
)

type Dependencies struct {
	Logger         *log.Logger
	Addr           string
	SessionService *service.SessionService
	ScanService    *service.ScanService
}

// Server is the thin JSON surface the two producers talk to: the badge
// reader posts to /v1/badge and /v1/sessions/{id}/end, the QR decoder
// posts to /v1/scans.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	sessions   *service.SessionService
	scans      *service.ScanService
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:   d.Logger,
		sessions: d.SessionService,
		scans:    d.ScanService,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/badge", s.handleBadge).Methods(http.MethodPost)
	r.HandleFunc("/v1/sessions/{id}/end", s.handleEndSession).Methods(http.MethodPost)
	r.HandleFunc("/v1/sessions/active", s.handleActiveSession).Methods(http.MethodGet)
	r.HandleFunc("/v1/scans", s.handleScan).Methods(http.MethodPost)

	handler := loggingMiddleware(d.Logger, r)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleBadge opens a session for the scanned badge.  A re-scan while a
// session is open closes it and opens a new one.
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	var req types.BadgeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	rec, err := s.sessions.Create(r.Context(), req.BadgeCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidBadgeCode):
			writeError(w, http.StatusBadRequest, "invalid_badge_code", err.Error())
		case errors.Is(err, service.ErrUnknownBadge):
			writeError(w, http.StatusForbidden, "unknown_badge", err.Error())
		default:
			s.logger.Printf("badge error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(rec))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	rec, err := s.sessions.End(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSessionID):
			writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		case errors.Is(err, service.ErrSessionNotActive):
			writeError(w, http.StatusConflict, "session_not_active", err.Error())
		default:
			s.logger.Printf("end session error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(rec))
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	badgeCode := r.URL.Query().Get("badge_code")

	rec, err := s.sessions.GetActive(r.Context(), badgeCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidBadgeCode):
			writeError(w, http.StatusBadRequest, "invalid_badge_code", err.Error())
		case errors.Is(err, service.ErrUnknownBadge):
			writeError(w, http.StatusForbidden, "unknown_badge", err.Error())
		default:
			s.logger.Printf("active session error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no_active_session", "no active session for badge")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(*rec))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	result, err := s.scans.Ingest(r.Context(), req.SessionID, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSessionID):
			writeError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
		case errors.Is(err, service.ErrSessionNotActive):
			writeError(w, http.StatusConflict, "session_not_active", err.Error())
		default:
			s.logger.Printf("scan error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	if !result.Accepted {
		writeJSON(w, http.StatusOK, types.ScanResponse{
			OK:         true,
			Duplicate:  true,
			Source:     string(result.Duplicate.Source),
			AgeMinutes: result.Duplicate.Age.Minutes(),
		})
		return
	}

	ev := result.Event
	writeJSON(w, http.StatusCreated, types.ScanResponse{
		OK:          true,
		Accepted:    true,
		ScanEventID: ev.ID,
		Format:      ev.Format,
		Fields:      ev.Fields,
		Display:     ev.Display,
		CapturedAt:  ev.CapturedAt.Format(time.RFC3339Nano),
	})
}

func sessionResponse(rec store.SessionRecord) types.SessionResponse {
	resp := types.SessionResponse{
		OK:         true,
		SessionID:  rec.ID,
		IdentityID: rec.IdentityID,
		StartedAt:  rec.StartedAt.Format(time.RFC3339Nano),
		Active:     rec.Active,
	}
	if rec.EndedAt != nil {
		resp.EndedAt = rec.EndedAt.Format(time.RFC3339Nano)
	}
	return resp
}

type errorBody struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{OK: false, Code: code, Message: msg})
}
