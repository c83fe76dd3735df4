package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

type processResponse struct {
	Text     string   `json:"text"`
	FileName string   `json:"file_name"`
	Pages    int      `json:"pages"`
	Method   string   `json:"method"`
	Warnings []string `json:"warnings,omitempty"`
}

type extractRequest struct {
	Text   string           `json:"text"`
	Schema entity.APISchema `json:"schema"`
}

// upload reads the multipart "file" field.
type upload struct {
	name string
	data []byte
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, common.InvalidInputErrorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, common.InvalidInputError("No file provided")
		}
		return nil, common.InvalidInputErrorf("invalid multipart form: %v", err)
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		return nil, common.InvalidInputError("No file provided")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, common.WrapError(err, "read upload")
	}
	return &upload{name: fh.Filename, data: data}, nil
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		writeAppError(w, err, "Error processing PDF file")
		return
	}

	res, err := s.proc.ParseText(r.Context(), up.name, up.data)
	if err != nil {
		s.logger.Error("api.process.failed", "file_name", up.name, "error", err)
		if errors.Is(err, common.ErrInvalidInput) {
			writeAppError(w, err, "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error processing PDF file")
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Text:     res.Text,
		FileName: up.name,
		Pages:    res.Pages,
		Method:   res.Method,
		Warnings: res.Warnings,
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	}
	if err := schema.ValidateAPI(req.Schema); err != nil {
		writeAppError(w, err, "")
		return
	}

	doc, raw, err := s.proc.ExtractText(r.Context(), req.Text, req.Schema, "")
	if err != nil {
		s.logger.Error("api.extract.failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, common.PublicMessage(err))
		return
	}
	if len(raw) > 0 {
		w.Header().Set("Content-Type", constants.ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
