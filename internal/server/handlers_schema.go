package server

import (
	"net/http"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

type defaultSchemaResponse struct {
	Fields []entity.SchemaField `json:"fields"`
	Schema entity.APISchema     `json:"schema"`
}

func (s *Server) handleDefaultSchema(w http.ResponseWriter, _ *http.Request) {
	tree := schema.Default()
	writeJSON(w, http.StatusOK, defaultSchemaResponse{Fields: tree, Schema: schema.ToAPI(tree)})
}

// handleToAPI converts a field tree into root/items form.
func (s *Server) handleToAPI(w http.ResponseWriter, r *http.Request) {
	var tree []entity.SchemaField
	if err := s.decodeJSON(w, r, &tree); err != nil {
		writeAppError(w, err, "")
		return
	}
	if err := schema.Validate(tree); err != nil {
		writeAppError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, schema.ToAPI(tree))
}

// handleFromAPI converts root/items form back into a field tree.
func (s *Server) handleFromAPI(w http.ResponseWriter, r *http.Request) {
	var api entity.APISchema
	if err := s.decodeJSON(w, r, &api); err != nil {
		writeAppError(w, err, "")
		return
	}
	if api.IsEmpty() {
		writeAppError(w, schema.ErrNoSchema, "")
		return
	}
	writeJSON(w, http.StatusOK, schema.FromAPI(api))
}
