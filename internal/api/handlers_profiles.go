package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/open-procurement/ecatalog/internal/models"
)

// accessEnvelope is the one-time response shape of profile creation: the
// owner token is displayed here and never again.
type accessEnvelope struct {
	Access models.AccessData `json:"access"`
	Data   *models.Profile   `json:"data"`
}

// mutationBody carries the access gate and the patch data of profile
// mutations. Destroy sends access only.
type mutationBody struct {
	Access *models.AccessData `json:"access"`
	Data   json.RawMessage    `json:"data"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := models.ProfileFilters{
		ClassificationID:          query.Get("classification_id"),
		ClassificationDescription: query.Get("classification_description"),
		Author:                    query.Get("author"),
		Status:                    query.Get("status"),
		Ordering:                  query.Get("ordering"),
		Limit:                     queryInt(r, "limit", 100),
		Offset:                    queryInt(r, "offset", 0),
	}

	if raw := query.Get("criteria_requirementGroups_requirements_relatedCriteria_id"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			// An unparsable id matches nothing.
			respondJSON(w, http.StatusOK, map[string]any{
				"results": []any{},
				"total":   0,
			})
			return
		}
		filters.RelatedCriteriaID = &id
	}

	profiles, total, err := s.profiles.List(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": profiles,
		"total":   total,
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		respondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	var in models.ProfileCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	p, err := s.profiles.Create(r.Context(), identity.Name, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, accessEnvelope{
		Access: models.AccessData{
			Owner: p.Author,
			Token: models.HexID(p.AccessToken),
		},
		Data: p,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	var body mutationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if body.Data == nil {
		body.Data = json.RawMessage("{}")
	}

	p, err := s.profiles.Patch(r.Context(), id, body.Access, body.Data)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDestroyProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	var body mutationBody
	if r.Body != nil {
		// A missing or empty body means missing access data, not a malformed
		// request.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	p, err := s.profiles.Destroy(r.Context(), id, body.Access)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
