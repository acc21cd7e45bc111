package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/sitewright/internal/config"
	"github.com/hyperjump/sitewright/internal/document"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/orchestrator"
	"github.com/hyperjump/sitewright/internal/placeholder"
	"github.com/hyperjump/sitewright/internal/ranking"
	"github.com/hyperjump/sitewright/internal/storage"
)

// maxTemplateBytes caps uploaded template payloads.
const maxTemplateBytes = 8 << 20

// MatchRequest is the body of POST /api/v1/match.
type MatchRequest struct {
	Profile      models.BusinessProfile `json:"profile"`
	Kind         document.DocumentKind  `json:"kind,omitempty"`
	Capabilities []string               `json:"capabilities,omitempty"`
	TopK         int                    `json:"top_k,omitempty"`
}

// MatchItem is one ranked template in a match response.
type MatchItem struct {
	Rank       int                     `json:"rank"`
	TemplateID string                  `json:"template_id"`
	Title      string                  `json:"title"`
	Score      float64                 `json:"score"`
	Reasons    []string                `json:"reasons"`
	Breakdown  *ranking.ScoreBreakdown `json:"breakdown,omitempty"`
}

// MatchItems converts ranker output into response items.
func MatchItems(results []*ranking.MatchResult) []MatchItem {
	items := make([]MatchItem, 0, len(results))
	for i, res := range results {
		items = append(items, MatchItem{
			Rank:       i + 1,
			TemplateID: res.Document.ID,
			Title:      res.Document.Title,
			Score:      res.Score,
			Reasons:    nonNil(res.Reasons),
			Breakdown:  res.Breakdown,
		})
	}
	return items
}

// RenderRequest is the body of POST /api/v1/render. When Document is set the
// variables are applied to its text settings, otherwise Text is rendered.
type RenderRequest struct {
	Text           string          `json:"text,omitempty"`
	Document       json.RawMessage `json:"document,omitempty"`
	Variables      map[string]any  `json:"variables"`
	KeepUnresolved *bool           `json:"keep_unresolved,omitempty"`
}

type generateResponse struct {
	*orchestrator.Result
	Progress []models.ProgressEvent `json:"progress"`
	Error    string                 `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"templates": s.catalog.Len(),
	}
	if s.storage != nil {
		runs, err := s.storage.CountRuns(r.Context())
		if err != nil {
			s.logger.Error("status: count runs failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["runs"] = runs
	}

	configInfo := map[string]interface{}{
		"generation_timeout_seconds": s.config.Generation.TimeoutSeconds,
		"max_concurrency":            s.config.Generation.MaxConcurrency,
		"keep_unresolved":            s.config.Placeholders.KeepUnresolved,
		"database_path":              s.config.Storage.DatabasePath,
		"keyword_index_path":         s.config.Storage.KeywordIndexPath,
		"template_directories":       nonNil(s.config.Templates.Directories),
	}
	if usage, err := storage.DiskUsage(s.config.Storage.DatabasePath, s.config.Storage.KeywordIndexPath); err == nil {
		resp["disk_usage_bytes"] = usage.Total
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	all := s.catalog.Summaries(s.engine)
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	page := all[offset:]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"templates": page, "total": total})
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := document.Parse(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("save template request", zap.String("template_id", doc.ID), zap.String("title", doc.Title))
	if err := s.catalog.Upsert(r.Context(), doc); err != nil {
		s.logger.Error("saving template failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": doc.ID, "status": "saved"})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	doc, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "template not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete template request", zap.String("template_id", id))
	removed, err := s.catalog.Remove(r.Context(), id)
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "template not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Profile.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.config.Generation.TopK
	}
	s.logger.Debug("match request", zap.String("category", req.Profile.Category), zap.Int("top_k", topK))
	results := s.catalog.MatchBest(r.Context(), &req.Profile, ranking.MatchOptions{
		TopK:         topK,
		Kind:         req.Kind,
		Capabilities: req.Capabilities,
	})
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": MatchItems(results)})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var (
		mu     sync.Mutex
		events []models.ProgressEvent
	)
	sink := orchestrator.ProgressFunc(func(ev models.ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	res := s.orchestrator.Generate(r.Context(), req, sink)

	resp := generateResponse{Result: res, Progress: events}
	if res.Err != nil {
		resp.Error = res.Err.Error()
		s.respondJSON(w, errorStatus(res.Err), resp)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	engine := s.engine
	if req.KeepUnresolved != nil {
		engine = placeholder.New(
			placeholder.KeepUnresolved(*req.KeepUnresolved),
			placeholder.WithTextFields(s.config.Placeholders.ExtraTextFields...),
		)
	}
	env := placeholder.FromAny(req.Variables)

	if len(req.Document) > 0 {
		doc, err := document.Parse(req.Document)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		applied := engine.ApplyToDocument(doc, env)
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"document":       doc,
			"fields":         applied.Fields,
			"variables_used": nonNil(applied.Variables),
		})
		return
	}

	used := make(map[string]struct{})
	text := engine.RenderTraced(req.Text, env, used)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"text":           text,
		"variables_used": sortedKeys(used),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not enabled")
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	runs, err := s.storage.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not enabled")
		return
	}
	run, err := s.storage.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistDirectories writes the watched directories back to the config file.
func (s *Server) persistDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Templates.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidProfile), errors.Is(err, models.ErrMalformedDocument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
