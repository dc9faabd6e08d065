package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
	"github.com/dmitrijs2005/tubekeeper/internal/server/services"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.InvalidArgument("invalid request body")
	}
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"full_name"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	avatar, err := stageFile(w, r, "avatar", s.uploadDir)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	cover, err := stageFile(w, r, "cover_image", s.uploadDir)
	if err != nil {
		discardStaged(avatar)
		writeError(w, r, s.log, err)
		return
	}
	defer discardStaged(avatar, cover)

	view, err := s.accounts.Register(r.Context(), services.Registration{
		Username:       r.FormValue("username"),
		Email:          r.FormValue("email"),
		FullName:       r.FormValue("full_name"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, view, "User registered successfully")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	session, err := s.sessions.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	s.setSessionCookies(w, session.TokenPair)
	writeJSON(w, http.StatusOK, session, "User logged in successfully")
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, s.log, err)
			return
		}
		presented = req.RefreshToken
	}

	pair, err := s.sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}

	s.setSessionCookies(w, *pair)
	writeJSON(w, http.StatusOK, pair, "Access token refreshed")
}

// current returns the gate's account; routes behind requireAccount always have one.
func current(r *http.Request) *models.AccountView {
	a, _ := AccountFromContext(r.Context())
	return a
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), current(r).ID); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	s.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, struct{}{}, "User logged out")
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	if err := s.accounts.ChangePassword(r.Context(), current(r).ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	view, err := s.accounts.CurrentAccount(r.Context(), current(r).ID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view, "User fetched successfully")
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	view, err := s.accounts.UpdateAccountDetails(r.Context(), current(r).ID, req.FullName)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view, "Account details updated successfully")
}

func (s *Server) updateAvatar(w http.ResponseWriter, r *http.Request) {
	s.replaceMedia(w, r, "avatar", s.accounts.UpdateAvatar, "Avatar updated successfully")
}

func (s *Server) updateCoverImage(w http.ResponseWriter, r *http.Request) {
	s.replaceMedia(w, r, "cover_image", s.accounts.UpdateCoverImage, "Cover image updated successfully")
}

type mediaUpdate func(ctx context.Context, id, localPath string) (*models.AccountView, error)

func (s *Server) replaceMedia(w http.ResponseWriter, r *http.Request, field string, update mediaUpdate, message string) {
	path, err := stageFile(w, r, field, s.uploadDir)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	defer discardStaged(path)

	view, err := update(r.Context(), current(r).ID, path)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view, message)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteAccount(r.Context(), current(r).ID); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	s.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, struct{}{}, "Account deleted successfully")
}

func (s *Server) channelProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.channels.Profile(r.Context(), chi.URLParam(r, "username"), current(r).ID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile, "User channel fetched successfully")
}

func (s *Server) watchHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.channels.WatchHistory(r.Context(), current(r).ID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, history, "Watch history fetched successfully")
}
