package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bytevault/server/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type folderResponse struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

func toFolderResponse(f models.Folder) folderResponse {
	return folderResponse{
		ID:        f.ID,
		ParentID:  f.ParentID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
	}
}

func (g *Gateway) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	var req struct {
		Name     string     `json:"name"`
		ParentID *uuid.UUID `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := g.storage.CreateFolder(r.Context(), userID, req.ParentID, req.Name)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	g.writeJSON(w, http.StatusCreated, toFolderResponse(folder))
}

func (g *Gateway) handleListFolders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	var parentID *uuid.UUID
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			g.writeError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		parentID = &id
	}

	folders, err := g.storage.ListFolders(r.Context(), userID, parentID)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	out := make([]folderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, toFolderResponse(f))
	}
	g.writeJSON(w, http.StatusOK, map[string]interface{}{"folders": out})
}

func (g *Gateway) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "folder_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid folder id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := g.storage.RenameFolder(r.Context(), userID, folderID, req.Name); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (g *Gateway) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	folderID, err := uuid.Parse(chi.URLParam(r, "folder_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid folder id")
		return
	}

	if err := g.storage.DeleteFolder(r.Context(), userID, folderID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
