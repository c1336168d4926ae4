package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/contraudit/contraudit/internal/embedding"
	"github.com/contraudit/contraudit/internal/extract"
	"github.com/contraudit/contraudit/internal/storage"
)

// maxUploadBytes caps uploaded document size.
const maxUploadBytes = 32 << 20

// readUpload extracts the uploaded document from a multipart form.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return "", nil, false
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read file")
		return "", nil, false
	}
	return header.Filename, content, true
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	name, content, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	s.logger.Debug("classify request", zap.String("name", name), zap.Int("bytes", len(content)))

	snap, err := s.classifier.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := s.classifier.Classify(r.Context(), name, content, snap)
	if err != nil {
		s.classifyError(w, name, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if docID := r.URL.Query().Get("document_id"); docID != "" {
		result, err := s.classifier.Audit(r.Context(), docID)
		if err != nil {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, result)
		return
	}

	name, content, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	s.logger.Debug("audit request", zap.String("name", name))
	result, err := s.classifier.AuditContent(r.Context(), name, content)
	if err != nil {
		s.classifyError(w, name, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleIndexTemplate(w http.ResponseWriter, r *http.Request) {
	name, content, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	s.logger.Debug("index template request", zap.String("name", name))
	tpl, err := s.classifier.IndexTemplate(r.Context(), name, content)
	if err != nil {
		s.classifyError(w, name, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{
		"id":     tpl.ID,
		"title":  tpl.Title,
		"status": "indexed",
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	templates, err := s.storage.ListTemplates(r.Context(), activeOnly)
	if err != nil {
		s.logger.Error("list templates failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetTemplateActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.storage.SetTemplateActive(r.Context(), id, req.Active); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "active": req.Active})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	violations, err := s.storage.GetViolations(r.Context(), id)
	if err != nil {
		s.logger.Error("load violations failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"document":   doc,
		"violations": violations,
	})
}

type choiceRequest struct {
	TemplateID string `json:"template_id"`
}

func (s *Server) handleUserChoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TemplateID == "" {
		s.respondError(w, http.StatusBadRequest, "template_id is required")
		return
	}
	if _, err := s.storage.GetTemplate(r.Context(), req.TemplateID); err != nil {
		s.respondError(w, http.StatusNotFound, "template not found")
		return
	}
	if err := s.storage.UpdateUserChoice(r.Context(), id, req.TemplateID); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Info("user choice recorded", zap.String("document", id), zap.String("template", req.TemplateID))
	s.respondJSON(w, http.StatusOK, map[string]string{"document_id": id, "template_id": req.TemplateID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateCount, err := s.storage.CountTemplates(ctx)
	if err != nil {
		s.logger.Error("status: count templates failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templateCount,
		"documents": docCount,
		"config": map[string]interface{}{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"matching_threshold":   s.config.Matching.Threshold,
			"database_path":        s.config.Storage.DatabasePath,
		},
		"database_size_bytes": storage.DatabaseSizeBytes(s.config.Storage.DatabasePath),
	})
}

// classifyError maps pipeline errors onto HTTP statuses: unsupported or
// corrupt uploads are client errors, transient embedding failures are 503.
func (s *Server) classifyError(w http.ResponseWriter, name string, err error) {
	s.logger.Error("request failed", zap.String("name", name), zap.Error(err))
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, extract.ErrCorruptFile):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case embedding.IsTransient(err):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
