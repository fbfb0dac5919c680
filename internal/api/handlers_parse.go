package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/walker"
)

// upload is a document received in a request.
type upload struct {
	filename string
	data     []byte
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	up, tree, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	s.log.Debug("parsed upload", "file", up.filename, "blocks", len(tree.Blocks))
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	up, tree, ok := s.parseUpload(w, r)
	if !ok {
		return
	}

	nested := s.cfg.Nested
	if v := r.URL.Query().Get("nested"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "nested must be a boolean", http.StatusBadRequest)
			return
		}
		nested = b
	}

	var records []doctree.Record
	if nested {
		records = walker.FlattenNested(up.filename, tree)
	} else {
		records = walker.Flatten(up.filename, tree)
	}
	if records == nil {
		records = []doctree.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file":    up.filename,
		"records": records,
	})
}

// parseUpload reads the request document and parses it with the configured
// options, overridden by min/target/max query parameters. On failure it has
// already written the error response.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (upload, *doctree.Tree, bool) {
	opts := s.cfg.ParserOptions()
	q := r.URL.Query()
	for _, o := range []struct {
		name string
		dst  *int
	}{
		{"min", &opts.Chunk.Min},
		{"target", &opts.Chunk.Target},
		{"max", &opts.Chunk.Max},
	} {
		v := q.Get(o.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, o.name+" must be an integer", http.StatusBadRequest)
			return upload{}, nil, false
		}
		*o.dst = n
	}
	if err := opts.Chunk.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return upload{}, nil, false
	}

	up, status, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), status)
		return upload{}, nil, false
	}
	if !parser.IsSupportedExtension(up.filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(up.filename)), http.StatusBadRequest)
		return upload{}, nil, false
	}

	p, err := parser.ForFile(up.filename, opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return upload{}, nil, false
	}

	start := time.Now()
	tree, err := p.Parse(bytes.NewReader(up.data), up.filename)
	s.stats.Record(time.Since(start), err != nil)
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, parser.ErrInvalidEncoding) {
			code = http.StatusBadRequest
		}
		s.log.Warn("parse failed", "file", up.filename, "error", err)
		jsonError(w, "parse failed: "+err.Error(), code)
		return upload{}, nil, false
	}
	return up, tree, true
}

// readUpload accepts either a multipart form with a "file" field or a raw
// body named by the filename query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	filename := r.URL.Query().Get("filename")
	var src io.Reader = r.Body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
			}
			return upload{}, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			return upload{}, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()
		if filename == "" {
			filename = header.Filename
		}
		src = file
	}

	if filename == "" {
		return upload{}, http.StatusBadRequest, errors.New("filename is required")
	}

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
		}
		return upload{}, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return upload{filename: sanitizeFilename(filename), data: data}, 0, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
