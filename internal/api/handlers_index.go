package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/sink"
)

// handleIndex walks DATA_DIR into the configured sink and returns the run
// summary. The walk runs inside the request.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		jsonError(w, "indexing unavailable", http.StatusServiceUnavailable)
		return
	}

	sum, err := s.indexer.Run(r.Context(), s.cfg.DataDir)
	if errors.Is(err, pipeline.ErrBusy) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		s.log.Error("index failed", "root", s.cfg.DataDir, "error", err)
		jsonError(w, "index failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// reader returns the indexer's sink when it can be read back.
func (s *Server) reader() (sink.Reader, bool) {
	if s.indexer == nil {
		return nil, false
	}
	rd, ok := s.indexer.Sink().(sink.Reader)
	return rd, ok
}

// handleFiles lists the files the sink holds records for.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.reader()
	if !ok {
		jsonError(w, "sink does not support reads", http.StatusNotImplemented)
		return
	}
	files, err := rd.Files(r.Context())
	if err != nil {
		s.log.Error("list files failed", "error", err)
		jsonError(w, "list files failed", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// handleRecords returns the stored records of ?file= in document order.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.reader()
	if !ok {
		jsonError(w, "sink does not support reads", http.StatusNotImplemented)
		return
	}
	file := r.URL.Query().Get("file")
	if file == "" {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	records, err := rd.Records(r.Context(), file)
	if err != nil {
		s.log.Error("read records failed", "file", file, "error", err)
		jsonError(w, "read records failed", http.StatusInternalServerError)
		return
	}
	if len(records) == 0 {
		jsonError(w, "no records for "+file, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": file, "records": records})
}
