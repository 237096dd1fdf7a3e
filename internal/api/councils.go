package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conclave-ai/conclave/internal/core"
)

// councilRequest is the create-council payload.
type councilRequest struct {
	Name             string   `json:"name"`
	Members          []string `json:"members"`
	Chairman         string   `json:"chairman,omitempty"`
	DiscussionRounds int      `json:"discussion_rounds,omitempty"`
}

// councilResponse is the API representation of a council.
type councilResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Members          []string  `json:"members"`
	Chairman         string    `json:"chairman,omitempty"`
	DiscussionRounds int       `json:"discussion_rounds"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toCouncilResponse(c *core.Council) councilResponse {
	members := make([]string, len(c.MemberAgentIDs))
	for i, m := range c.MemberAgentIDs {
		members[i] = string(m)
	}
	return councilResponse{
		ID:               string(c.ID),
		Name:             c.Name,
		Members:          members,
		Chairman:         string(c.ChairmanAgentID),
		DiscussionRounds: c.DiscussionRounds,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// handleCreateCouncil creates a council.
func (s *Server) handleCreateCouncil(w http.ResponseWriter, r *http.Request) {
	var req councilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	members := make([]core.AgentID, len(req.Members))
	for i, m := range req.Members {
		members[i] = core.AgentID(m)
	}
	council := &core.Council{
		Name:             req.Name,
		MemberAgentIDs:   members,
		ChairmanAgentID:  core.AgentID(req.Chairman),
		DiscussionRounds: req.DiscussionRounds,
	}

	created, err := s.launcher.CreateCouncil(r.Context(), council)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCouncilResponse(created))
}

// handleUpdateCouncil replaces a council's definition. In-flight
// launches keep the member roster they started with.
func (s *Server) handleUpdateCouncil(w http.ResponseWriter, r *http.Request) {
	id := core.CouncilID(chi.URLParam(r, "councilID"))
	existing, err := s.launcher.GetCouncil(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	var req councilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	members := make([]core.AgentID, len(req.Members))
	for i, m := range req.Members {
		members[i] = core.AgentID(m)
	}
	council := &core.Council{
		ID:               id,
		Name:             req.Name,
		MemberAgentIDs:   members,
		ChairmanAgentID:  core.AgentID(req.Chairman),
		DiscussionRounds: req.DiscussionRounds,
		CreatedAt:        existing.CreatedAt,
	}

	updated, err := s.launcher.CreateCouncil(r.Context(), council)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCouncilResponse(updated))
}

// handleListCouncils lists all councils.
func (s *Server) handleListCouncils(w http.ResponseWriter, r *http.Request) {
	councils, err := s.launcher.ListCouncils(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	out := make([]councilResponse, len(councils))
	for i, c := range councils {
		out[i] = toCouncilResponse(c)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"councils": out})
}

// handleGetCouncil retrieves one council.
func (s *Server) handleGetCouncil(w http.ResponseWriter, r *http.Request) {
	id := core.CouncilID(chi.URLParam(r, "councilID"))
	council, err := s.launcher.GetCouncil(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCouncilResponse(council))
}

// handleDeleteCouncil removes a council.
func (s *Server) handleDeleteCouncil(w http.ResponseWriter, r *http.Request) {
	id := core.CouncilID(chi.URLParam(r, "councilID"))
	if err := s.launcher.DeleteCouncil(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
