package server

import (
	"errors"
	"net/http"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

type documentsRequest struct {
	Data   []entity.Document `json:"data"`
	Schema entity.APISchema  `json:"schema"`
}

type previewResponse struct {
	Tables []entity.Table `json:"tables"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req documentsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	if req.Schema.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No schema provided")
		return
	}

	data, err := s.exporter.WorkbookXLSX(r.Context(), req.Data, req.Schema)
	if err != nil {
		s.logger.Error("api.download.failed", "documents", len(req.Data), "error", err)
		if errors.Is(err, common.ErrInvalidInput) {
			writeAppError(w, err, "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}
	writeAttachment(w, constants.DefaultExportFilename, constants.ContentTypeXLSX, data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req documentsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeAppError(w, err, "")
		return
	}
	if req.Schema.IsEmpty() {
		writeAppError(w, schema.ErrNoSchema, "")
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Tables: export.Preview(req.Data, req.Schema)})
}
