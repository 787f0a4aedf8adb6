package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/store"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

// sessionResponse is the JSON body returned by every session endpoint.
type sessionResponse struct {
	ID string `json:"id"`
	studio.State
	AnalysisTitle string `json:"analysisTitle,omitempty"`
}

func newSessionResponse(id string, st studio.State) sessionResponse {
	return sessionResponse{ID: id, State: st, AnalysisTitle: st.Kind.Title()}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type analyzeRequest struct {
	Kind string `json:"kind"`
}

type editRequest struct {
	Instruction string `json:"instruction"`
}

// GET /api/health
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// POST /api/sessions
func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		httpError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	respondJSON(w, http.StatusCreated, newSessionResponse(sess.ID, sess.Controller.Snapshot()))
}

// GET|DELETE /api/sessions/{id}
func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		sess, ok := s.lookup(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusOK, newSessionResponse(sess.ID, sess.Controller.Snapshot()))
	case http.MethodDelete:
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to delete session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/sessions/{id}/{action}
func (s *server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	wantMethod := http.MethodPost
	if action == "image" {
		wantMethod = http.MethodGet
	}
	if r.Method != wantMethod {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ctrl := sess.Controller

	// Remote calls outlive client disconnects; the phase gate needs them to finish.
	ctx := context.WithoutCancel(r.Context())

	var (
		st  studio.State
		err error
	)

	switch action {
	case "image":
		s.handleImage(w, ctrl)
		return

	case "generate":
		var req generateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		st, err = ctrl.Generate(ctx, req.Prompt)

	case "analyze":
		var req analyzeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		kind, kerr := studio.ParseAnalysisKind(req.Kind)
		if kerr != nil {
			httpError(w, http.StatusBadRequest, kerr.Error())
			return
		}
		st, err = ctrl.Analyze(ctx, kind)

	case "edit":
		var req editRequest
		if err := decodeJSON(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		st, err = ctrl.ApplyEdit(ctx, req.Instruction)

	case "upload":
		name, declared, data, rerr := s.readUpload(w, r)
		if rerr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(rerr, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			httpError(w, http.StatusBadRequest, "expected multipart form with a 'file' field")
			return
		}
		st, err = ctrl.Upload(name, declared, data)

	case "pick":
		if s.pick == nil {
			httpError(w, http.StatusNotFound, "file picker disabled")
			return
		}
		path, perr := s.pick()
		if perr != nil {
			if errors.Is(perr, cli.ErrPickCanceled) {
				respondJSON(w, http.StatusOK, newSessionResponse(sess.ID, ctrl.Snapshot()))
				return
			}
			log.Error().Err(perr).Msg("File picker failed")
			httpError(w, http.StatusInternalServerError, "file picker failed")
			return
		}
		st, err = ctrl.UploadFile(path)

	case "dismiss-error":
		st = ctrl.DismissError()

	case "clear-analysis":
		st, err = ctrl.ClearAnalysis()

	case "reset":
		st, err = ctrl.Reset()

	default:
		httpError(w, http.StatusNotFound, "unknown action")
		return
	}

	if status, rejected := rejectionStatus(err); rejected {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "5")
		}
		httpError(w, status, err.Error())
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("session_id", sess.ID).Str("action", action).Msg("Operation failed; error recorded in session")
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess.ID, st))
}

// handleImage serves the raw bytes of the current image.
func (s *server) handleImage(w http.ResponseWriter, ctrl *studio.Controller) {
	st := ctrl.Snapshot()
	if st.Image == nil {
		httpError(w, http.StatusNotFound, "no image")
		return
	}
	w.Header().Set("Content-Type", st.Image.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(st.Image.Data)
}

// lookup resolves {id} or writes a 404.
func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		httpError(w, http.StatusInternalServerError, "session lookup failed")
		return nil, false
	}
	return sess, true
}

// readUpload extracts the "file" part of a multipart upload.
func (s *server) readUpload(w http.ResponseWriter, r *http.Request) (name, declaredType string, data []byte, err error) {
	// Allow some room for multipart framing above the image cap.
	limit := s.maxUploadBytes + 1<<20
	if r.ContentLength > limit {
		return "", "", nil, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", "", nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, err
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", "", nil, err
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}

// rejectionStatus maps controller rejections to HTTP statuses. Operation
// failures are not rejections; they are reported in the session state.
func rejectionStatus(err error) (int, bool) {
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict, true
	case errors.Is(err, studio.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, studio.ErrNoImage),
		errors.Is(err, studio.ErrEmptyInstruction),
		errors.Is(err, studio.ErrUnknownAnalysis):
		return http.StatusBadRequest, true
	default:
		return 0, false
	}
}
