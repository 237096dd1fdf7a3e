package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conclave-ai/conclave/internal/core"
)

// launchRequest is the create-launch payload.
type launchRequest struct {
	CouncilID string `json:"council_id"`
	ProjectID string `json:"project_id,omitempty"`
	Prompt    string `json:"prompt"`
}

// memberOutputResponse is the API view of one recorded session output.
type memberOutputResponse struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
	Content   string `json:"content,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
}

// launchResponse is the API representation of a launch.
type launchResponse struct {
	ID              string                 `json:"id"`
	CouncilID       string                 `json:"council_id"`
	ProjectID       string                 `json:"project_id,omitempty"`
	Prompt          string                 `json:"prompt"`
	Stage           string                 `json:"stage"`
	SessionIDs      []string               `json:"session_ids"`
	DiscussionRound int                    `json:"discussion_round,omitempty"`
	MemberAnswers   []memberOutputResponse `json:"member_answers,omitempty"`
	Reviews         []memberOutputResponse `json:"reviews,omitempty"`
	Synthesis       string                 `json:"synthesis,omitempty"`
	Error           string                 `json:"error,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	StageEnteredAt  time.Time              `json:"stage_entered_at"`
}

func toOutputResponses(outputs []core.MemberOutput) []memberOutputResponse {
	if len(outputs) == 0 {
		return nil
	}
	out := make([]memberOutputResponse, len(outputs))
	for i, o := range outputs {
		out[i] = memberOutputResponse{
			AgentID:   string(o.AgentID),
			SessionID: string(o.SessionID),
			Content:   o.Content,
			Failed:    o.Failed,
		}
	}
	return out
}

func toLaunchResponse(l *core.CouncilLaunch) launchResponse {
	sessionIDs := make([]string, len(l.MemberSessionIDs))
	for i, sid := range l.MemberSessionIDs {
		sessionIDs[i] = string(sid)
	}
	return launchResponse{
		ID:              string(l.ID),
		CouncilID:       string(l.CouncilID),
		ProjectID:       l.ProjectID,
		Prompt:          l.Prompt,
		Stage:           string(l.Stage),
		SessionIDs:      sessionIDs,
		DiscussionRound: l.DiscussionRound,
		MemberAnswers:   toOutputResponses(l.MemberAnswers),
		Reviews:         toOutputResponses(l.Reviews),
		Synthesis:       l.Synthesis,
		Error:           l.Error,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
		StageEnteredAt:  l.StageEnteredAt,
	}
}

// handleCreateLaunch starts a deliberation against a council.
func (s *Server) handleCreateLaunch(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.CouncilID == "" {
		respondError(w, http.StatusBadRequest, "council_id is required")
		return
	}

	launch, err := s.launcher.CreateLaunch(r.Context(), core.CouncilID(req.CouncilID), req.ProjectID, req.Prompt)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toLaunchResponse(launch))
}

// handleListLaunches lists launches, optionally filtered by council_id.
func (s *Server) handleListLaunches(w http.ResponseWriter, r *http.Request) {
	councilID := core.CouncilID(r.URL.Query().Get("council_id"))
	launches, err := s.launcher.ListLaunches(r.Context(), councilID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	out := make([]launchResponse, len(launches))
	for i, l := range launches {
		out[i] = toLaunchResponse(l)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"launches": out})
}

// handleGetLaunch retrieves one launch.
func (s *Server) handleGetLaunch(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	launch, err := s.launcher.GetLaunch(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLaunchResponse(launch))
}

// handleAbortLaunch aborts a launch. Idempotent for already aborted
// launches.
func (s *Server) handleAbortLaunch(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	launch, err := s.launcher.Abort(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLaunchResponse(launch))
}

// handleReviewLaunch forces the launch into reviewing. A launch that
// already moved past the expected stage yields 409.
func (s *Server) handleReviewLaunch(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	launch, err := s.launcher.Review(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLaunchResponse(launch))
}

// handleSynthesizeLaunch forces synthesis from the reviewing stage.
func (s *Server) handleSynthesizeLaunch(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	launch, err := s.launcher.Synthesize(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toLaunchResponse(launch))
}

// chatRequest is one chat turn payload.
type chatRequest struct {
	Message string `json:"message"`
}

// chatMessageResponse is the API view of a chat message.
type chatMessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// handleChat answers one synchronous chat turn on a completed launch.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reply, err := s.launcher.Chat(r.Context(), id, req.Message)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatMessageResponse{
		ID:        reply.ID,
		Role:      reply.Role,
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
	})
}

// handleListChat returns the chat history of a launch.
func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	msgs, err := s.launcher.ListChat(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	out := make([]chatMessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = chatMessageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

// discussionMessageResponse is the API view of a discussion message.
type discussionMessageResponse struct {
	ID        string    `json:"id"`
	Round     int       `json:"round"`
	AgentID   string    `json:"agent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// handleListDiscussion returns the discussion transcript of a launch.
func (s *Server) handleListDiscussion(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	msgs, err := s.launcher.ListDiscussion(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	out := make([]discussionMessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = discussionMessageResponse{
			ID:        m.ID,
			Round:     m.Round,
			AgentID:   string(m.AgentID),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

// logEntryResponse is the API view of a launch log entry.
type logEntryResponse struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// handleListLogs returns the log entries of a launch.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	id := core.LaunchID(chi.URLParam(r, "launchID"))
	entries, err := s.launcher.ListLogs(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	out := make([]logEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = logEntryResponse{
			ID:        e.ID,
			Level:     e.Level,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": out})
}
