package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docsplit/internal/chunker"
)

type chunkRequest struct {
	Paragraphs []string `json:"paragraphs"`
	Min        *int     `json:"min,omitempty"`
	Target     *int     `json:"target,omitempty"`
	Max        *int     `json:"max,omitempty"`
}

type splitRequest struct {
	Text string `json:"text"`
	Max  *int   `json:"max,omitempty"`
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cfg := s.cfg.Chunk()
	if req.Min != nil {
		cfg.Min = *req.Min
	}
	if req.Target != nil {
		cfg.Target = *req.Target
	}
	if req.Max != nil {
		cfg.Max = *req.Max
	}
	if err := cfg.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	chunks := chunker.Adjust(req.Paragraphs, cfg)
	if chunks == nil {
		chunks = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	maxTokens := s.cfg.MaxTokens
	if req.Max != nil {
		maxTokens = *req.Max
	}
	if maxTokens <= 0 {
		jsonError(w, "max must be positive", http.StatusBadRequest)
		return
	}

	spans := chunker.SplitLong(req.Text, maxTokens)
	if spans == nil {
		spans = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"spans": spans})
}

// decodeJSON reads a size-limited JSON body into v. It writes the error
// response itself and reports whether decoding succeeded.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
