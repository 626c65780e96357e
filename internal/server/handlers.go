package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/graph"
	"github.com/Gautam825406/Finance-crime-detection/internal/ingest"
	"github.com/Gautam825406/Finance-crime-detection/internal/observability"
	"github.com/Gautam825406/Finance-crime-detection/internal/report"
)

type errorResponse struct {
	Error     string            `json:"error"`
	RowErrors []ingest.RowError `json:"row_errors,omitempty"`
}

// handleAnalyze ingests a CSV batch and runs the full pipeline. The CSV may
// arrive as a multipart upload (field "file") or as the raw request body.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := s.csvBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	defer body.Close()

	txs, rowErrs, err := ingest.ParseCSV(body)
	switch {
	case errors.Is(err, ingest.ErrTooManyRowErrors):
		s.countRowErrors(len(rowErrs))
		writeError(w, http.StatusUnprocessableEntity, err.Error(), rowErrs)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	case len(rowErrs) > 0:
		s.countRowErrors(len(rowErrs))
		writeError(w, http.StatusBadRequest, "batch contains invalid rows", rowErrs)
		return
	}
	s.countRows(len(txs))

	rep, err := s.runAnalysis(r.Context(), txs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "analysis timed out", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	s.setLatest(rep)
	s.persistLatest(rep)
	s.hub.Broadcast(RunEvent{
		RunID:    rep.RunID,
		Flagged:  rep.Summary.SuspiciousAccountsFlagged,
		Rings:    rep.Summary.FraudRingsDetected,
		Accounts: rep.Summary.TotalAccountsAnalyzed,
	})

	writeJSON(w, http.StatusOK, rep)
}

// runAnalysis bounds the pipeline with the configured timeout. The pipeline
// checks the context between stages, so the goroutine does not outlive the
// deadline by more than one stage.
func (s *Server) runAnalysis(ctx context.Context, txs []graph.Transaction) (*report.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AnalyzeTimeout())
	defer cancel()

	type result struct {
		rep *report.Report
		err error
	}
	done := make(chan result, 1)
	go func() {
		rep, err := s.runner.Run(ctx, txs)
		done <- result{rep, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.rep, res.err
	}
}

// csvBody extracts the CSV stream from the request, honoring the upload cap.
func (s *Server) csvBody(r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			return nil, errors.New("parse multipart form: " + err.Error())
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New(`multipart form is missing the "file" field`)
		}
		return f, nil
	}
	return r.Body, nil
}

// handleLatestReport serves the most recent report, falling back to the one
// persisted on disk after a restart.
func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	if rep := s.getLatest(); rep != nil {
		writeJSON(w, http.StatusOK, rep)
		return
	}

	rep, err := report.ReadFile(s.latestPath())
	if err != nil {
		writeError(w, http.StatusNotFound, "no report available", nil)
		return
	}
	s.setLatest(rep)
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Check())
}

func (s *Server) latestPath() string {
	return filepath.Join(s.reports.OutputDir, s.reports.LatestFile)
}

func (s *Server) persistLatest(rep *report.Report) {
	if err := report.WriteFile(rep, s.latestPath()); err != nil {
		log.Error().Err(err).Msg("server: persist report")
	}
}

func (s *Server) countRows(n int) {
	if c := s.metrics.GetCounter(observability.MetricRowsIngestedTotal); c != nil {
		c.Add(float64(n))
	}
}

func (s *Server) countRowErrors(n int) {
	if c := s.metrics.GetCounter(observability.MetricRowErrorsTotal); c != nil {
		c.Add(float64(n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("server: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string, rowErrs []ingest.RowError) {
	writeJSON(w, status, errorResponse{Error: msg, RowErrors: rowErrs})
}
