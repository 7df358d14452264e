package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bytevault/server/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type fileResponse struct {
	ID        uuid.UUID  `json:"id"`
	FolderID  uuid.UUID  `json:"folder_id"`
	Name      string     `json:"name"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func toFileResponse(f models.File) fileResponse {
	return fileResponse{
		ID:        f.ID,
		FolderID:  f.FolderID,
		Name:      f.Name,
		SizeBytes: f.SizeBytes,
		CreatedAt: f.CreatedAt,
		DeletedAt: f.DeletedAt,
	}
}

func (g *Gateway) handleRegisterFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	var req struct {
		FolderID  uuid.UUID `json:"folder_id"`
		Name      string    `json:"name"`
		SizeBytes int64     `json:"size_bytes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := g.storage.RegisterFile(r.Context(), userID, req.FolderID, req.Name, req.SizeBytes)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	g.writeJSON(w, http.StatusCreated, toFileResponse(file))
}

func (g *Gateway) handleStatFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "file_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	file, err := g.storage.StatFile(r.Context(), userID, fileID)
	if err == nil {
		g.writeJSON(w, http.StatusOK, toFileResponse(file))
		return
	}

	// Not the owner's file; a live share still grants read access.
	allowed, accessErr := g.sharing.CanAccess(r.Context(), userID, fileID)
	if accessErr != nil || !allowed {
		g.writeServiceError(w, err)
		return
	}
	shared, sharedErr := g.storage.GetFile(r.Context(), fileID)
	if sharedErr != nil {
		g.writeServiceError(w, sharedErr)
		return
	}
	g.writeJSON(w, http.StatusOK, toFileResponse(shared))
}

func (g *Gateway) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "file_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := g.storage.DeleteFile(r.Context(), userID, fileID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (g *Gateway) handleListFiles(w http.ResponseWriter, r *http.Request) {
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

	files, err := g.storage.ListFiles(r.Context(), userID, folderID)
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
