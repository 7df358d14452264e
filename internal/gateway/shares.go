package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (g *Gateway) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := g.sharing.CreateGroup(r.Context(), userID, req.Name)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	g.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         group.ID,
		"name":       group.Name,
		"created_at": group.CreatedAt,
	})
}

func (g *Gateway) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "group_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	if err := g.sharing.DeleteGroup(r.Context(), userID, groupID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (g *Gateway) handleListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "group_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	members, err := g.sharing.ListMembers(r.Context(), userID, groupID)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

func (g *Gateway) handleAddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "group_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := g.sharing.AddMember(r.Context(), userID, groupID, req.UserID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (g *Gateway) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	groupID, err := uuid.Parse(chi.URLParam(r, "group_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := g.sharing.RemoveMember(r.Context(), userID, groupID, memberID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (g *Gateway) handleShareFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	var req struct {
		FileID  uuid.UUID `json:"file_id"`
		GroupID uuid.UUID `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := g.sharing.ShareFile(r.Context(), userID, req.FileID, req.GroupID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusCreated, map[string]string{"status": "shared"})
}

func (g *Gateway) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	var req struct {
		FileID  uuid.UUID `json:"file_id"`
		GroupID uuid.UUID `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := g.sharing.RevokeShare(r.Context(), userID, req.FileID, req.GroupID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (g *Gateway) handleListSharedFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	files, err := g.sharing.ListSharedFiles(r.Context(), userID)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	g.writeJSON(w, http.StatusOK, map[string]interface{}{"files": out})
}
