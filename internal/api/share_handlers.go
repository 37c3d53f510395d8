package api

import (
	"cloud-doc/internal/database"
	"cloud-doc/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ShareFolderRequest struct {
	SharedWithEmail string `json:"shared_with_email" example:"bob@example.com"`
}

type SharedAccessListResponse struct {
	Shares []models.SharedAccess `json:"shares"`
}

// @Summary      Share your folder
// @Description  Gives another user read access to every file in the caller's folder, including files uploaded later.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        shareRequest  body      ShareFolderRequest  true  "Viewer to share with"
// @Success      200           {object}  MessageResponse
// @Failure      400           {object}  ErrorResponse
// @Failure      401           {object}  ErrorResponse
// @Failure      500           {object}  ErrorResponse
// @Router       /share-folder [post]
func (s *Server) ShareFolderHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req ShareFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SharedWithEmail == "" {
		writeError(w, http.StatusBadRequest, "Missing shared_with_email in request")
		return
	}
	if req.SharedWithEmail == user.Email {
		writeError(w, http.StatusBadRequest, "You cannot share with yourself")
		return
	}

	created, err := s.store.ShareFolder(r.Context(), user.Email, req.SharedWithEmail)
	if err != nil {
		if errors.Is(err, database.ErrSelfShare) {
			writeError(w, http.StatusBadRequest, "You cannot share with yourself")
			return
		}
		s.internalError(w, r, "Failed to share folder", err)
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Folder already shared with this user"})
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Folder shared with %s", req.SharedWithEmail),
	})
}

// @Summary      List your shares
// @Description  Lists the users the caller currently shares their folder with.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SharedAccessListResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /shared-accesses [get]
func (s *Server) ListSharedAccessesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	shares, err := s.store.ListSharesByOwner(r.Context(), user.Email)
	if err != nil {
		s.internalError(w, r, "Failed to list shared accesses", err)
		return
	}

	writeJSON(w, http.StatusOK, SharedAccessListResponse{Shares: shares})
}

// @Summary      Revoke all shares
// @Description  Removes every share where the caller is the owner.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /clear-shared-accesses [delete]
func (s *Server) ClearSharedAccessesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if _, err := s.store.ClearShares(r.Context(), user.Email); err != nil {
		s.internalError(w, r, "Failed to clear accesses", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "All shared accesses cleared"})
}
