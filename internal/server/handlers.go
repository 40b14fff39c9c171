package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/trendlens/internal/export"
	"github.com/hyperjump/trendlens/internal/metrics"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/internal/session"
	"github.com/hyperjump/trendlens/internal/storage"
	"github.com/hyperjump/trendlens/internal/trend"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type analyzeRequest struct {
	Input    string   `json:"input,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Window   int      `json:"window,omitempty"`
}

type stateView struct {
	session.State
	Error string `json:"error,omitempty"`
}

type analyzeResponse struct {
	State        stateView      `json:"state"`
	Dataset      *trend.Dataset `json:"dataset,omitempty"`
	DatasetError string         `json:"dataset_error,omitempty"`
}

type rasterRequest struct {
	Region string `json:"region,omitempty"`
	Window int    `json:"window,omitempty"`
}

func viewOf(st session.State) stateView {
	return stateView{State: st, Error: st.Error()}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	win := s.defaultWindow()
	if req.Window != 0 {
		win = models.Window(req.Window)
	}
	if !win.Valid() {
		s.respondErr(w, fmt.Errorf("%w: %d", models.ErrInvalidWindow, req.Window))
		return
	}
	var epoch uint64
	var err error
	if len(req.Keywords) > 0 {
		s.logger.Debug("analyze request", zap.Strings("keywords", req.Keywords), zap.Int("window", win.Months()))
		epoch, err = s.session.Submit(r.Context(), req.Keywords)
	} else {
		s.logger.Debug("analyze request", zap.String("input", req.Input), zap.Int("window", win.Months()))
		epoch, err = s.session.SubmitInput(r.Context(), req.Input)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}

	st, err := s.session.Await(r.Context(), epoch)
	if err != nil {
		s.logger.Warn("analysis failed", zap.Uint64("epoch", st.Epoch), zap.Error(err))
		s.respondErr(w, err)
		return
	}
	s.indexResults(st.Results)

	resp := analyzeResponse{State: viewOf(st)}
	ds, err := trend.Build(st.Results, win)
	resp.Dataset = ds
	if err != nil {
		resp.DatasetError = err.Error()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	st := s.session.Snapshot()
	resp := analyzeResponse{State: viewOf(st)}
	if q := r.URL.Query().Get("window"); q != "" && st.Results != nil {
		win, err := models.ParseWindow(q)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		ds, err := trend.Build(st.Results, win)
		resp.Dataset = ds
		if err != nil {
			resp.DatasetError = err.Error()
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowParam(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	rs, err := s.session.Results()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	ds, err := trend.Build(rs, win)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ds)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"history": s.session.History()})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearHistory(r.Context()); err != nil {
		s.logger.Error("clear history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		s.respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	win, err := s.windowParam(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	rs, err := s.session.Results()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	table, err := export.KeywordTable(rs, keyword, win)
	if err != nil {
		metrics.RecordExport("csv", "error")
		s.respondErr(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, table); err != nil {
		metrics.RecordExport("csv", "error")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordExport("csv", "ok")
	s.respondFile(w, "text/csv; charset=utf-8", table.Filename, buf.Bytes())
}

func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	win, err := s.windowParam(r)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	rs, err := s.session.Results()
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, rs, win); err != nil {
		metrics.RecordExport("xlsx", "error")
		s.logger.Error("workbook export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordExport("xlsx", "ok")
	s.respondFile(w, workbookContentType, export.WorkbookFilename, buf.Bytes())
}

func (s *Server) handleExportRaster(w http.ResponseWriter, r *http.Request) {
	var req rasterRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Region == "" {
		req.Region = export.RegionTrendChart
	}
	win := s.defaultWindow()
	if req.Window != 0 {
		win = models.Window(req.Window)
	}
	report := s.exporter.TriggerRasterExport(r.Context(), req.Region, export.WithWindow(win))
	if !report.OK() {
		s.respondJSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	w.Header().Set("X-Report-Id", report.ID)
	w.Header().Set("X-Report-Filename", report.Filename)
	s.respondFile(w, report.ContentType, report.RasterName, report.Image)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.suggest == nil {
		s.respondError(w, http.StatusNotImplemented, "suggestions not enabled")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	out, err := s.suggest.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.logger.Error("suggest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.session.Snapshot()
	resp := map[string]interface{}{
		"epoch":   st.Epoch,
		"phase":   st.Phase,
		"history": len(s.session.History()),
	}
	if s.storage != nil {
		count, err := s.storage.CountResults(ctx)
		if err != nil {
			s.logger.Error("status: count results failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["stored_results"] = count
		if size, err := storage.Size(s.storage); err == nil {
			resp["disk_usage_bytes"] = size
		}
	}
	if s.suggest != nil {
		resp["suggestion_terms"] = s.suggest.Len()
	}
	if s.exporter != nil {
		resp["regions"] = s.exporter.Regions()
	}

	configInfo := map[string]interface{}{
		"backend_url":      s.config.Backend.URL,
		"backend_embedded": s.config.Backend.Embedded,
		"storage_driver":   s.config.Storage.Driver,
		"default_window":   s.config.Export.DefaultWindow,
		"history_max":      s.config.History.MaxEntries,
		"cache_size":       s.config.Analysis.CacheSize,
	}
	if s.config.Storage.Driver == storage.DriverSQLite {
		configInfo["database_path"] = s.config.Storage.DatabasePath
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) indexResults(rs *models.ResultSet) {
	if s.suggest == nil || rs == nil {
		return
	}
	if err := s.suggest.AddResults(rs); err != nil {
		s.logger.Warn("failed to index results for suggestions", zap.Error(err))
	}
}

func (s *Server) defaultWindow() models.Window {
	if s.config != nil && s.config.Export.DefaultWindow != 0 {
		return models.Window(s.config.Export.DefaultWindow)
	}
	return models.DefaultWindow
}

func (s *Server) windowParam(r *http.Request) (models.Window, error) {
	q := r.URL.Query().Get("window")
	if q == "" {
		return s.defaultWindow(), nil
	}
	return models.ParseWindow(q)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNoKeywords), errors.Is(err, models.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoResults), errors.Is(err, models.ErrUnknownKeyword), errors.Is(err, export.ErrUnknownRegion):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyDataset), errors.Is(err, export.ErrKeywordFailed):
		return http.StatusUnprocessableEntity
	case models.IsTransport(err):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	s.respondError(w, statusFor(err), err.Error())
}

func (s *Server) respondFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
