package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/open-procurement/ecatalog/internal/models"
)

// optionalCriterionFields are the columns opt_fields may add to the default
// list projection.
var optionalCriterionFields = map[string]bool{
	"nameEng":      true,
	"dataType":     true,
	"minValue":     true,
	"maxValue":     true,
	"dateModified": true,
}

// criterionView renders the list projection: the default field set plus any
// requested optional fields. Single-item endpoints return the full record.
func criterionView(c *models.Criterion, extra map[string]bool) map[string]any {
	view := map[string]any{
		"id":                       c.ID,
		"name":                     c.Name,
		"classification":           c.Classification,
		"additionalClassification": c.AdditionalClassification,
		"unit":                     c.Unit,
		"status":                   c.Status,
	}
	if extra["nameEng"] {
		view["nameEng"] = c.NameEng
	}
	if extra["dataType"] {
		view["dataType"] = c.DataType
	}
	if extra["minValue"] {
		view["minValue"] = c.MinValue
	}
	if extra["maxValue"] {
		view["maxValue"] = c.MaxValue
	}
	if extra["dateModified"] {
		view["dateModified"] = c.DateModified
	}
	return view
}

func parseOptFields(r *http.Request) map[string]bool {
	raw := r.URL.Query().Get("opt_fields")
	if raw == "" {
		return nil
	}
	extra := make(map[string]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if optionalCriterionFields[field] {
			extra[field] = true
		}
	}
	return extra
}

func (s *Server) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := models.CriteriaFilters{
		Name:                       query.Get("name"),
		ClassificationID:           query.Get("classification_id"),
		AdditionalClassificationID: query.Get("additional_classification_id"),
		UnitCode:                   query.Get("unit_code"),
		Status:                     query.Get("status"),
		DateModifiedFrom:           queryTime(r, "date_modified_from"),
		DateModifiedTo:             queryTime(r, "date_modified_to"),
		Ordering:                   query.Get("ordering"),
		Limit:                      queryInt(r, "limit", 100),
		Offset:                     queryInt(r, "offset", 0),
	}

	criteria, err := s.criteria.List(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	extra := parseOptFields(r)
	views := make([]map[string]any, 0, len(criteria))
	for _, c := range criteria {
		views = append(views, criterionView(c, extra))
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateCriterion(w http.ResponseWriter, r *http.Request) {
	var in models.CriterionCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	criterion, err := s.criteria.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, criterion)
}

func (s *Server) handleGetCriterion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	criterion, err := s.criteria.Retrieve(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, criterion)
}

func (s *Server) handlePatchCriterion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	criterion, err := s.criteria.Patch(r.Context(), id, payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, criterion)
}

func (s *Server) handleRetireCriterion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	criterion, err := s.criteria.Retire(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, criterion)
}
