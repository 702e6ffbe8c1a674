package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/smartvillageshub/backend/internal/services"
	"github.com/smartvillageshub/backend/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler provides self-service account routes.
type UserHandler struct {
	userService    *services.UserService
	listingService *services.ListingService
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, listingService *services.ListingService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		listingService: listingService,
	}
}

// UserRouter registers user routes on the given router. All routes
// require authentication.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	listingService *services.ListingService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService, listingService)

	r.Use(authMiddleware)
	r.Put("/update/{userID}", handler.UpdateUser)
	r.Delete("/delete/{userID}", handler.DeleteUser)
	r.Get("/listings/{userID}", handler.GetUserListings)
	r.Get("/{userID}", handler.GetUser)
}

// UpdateUser lets a user change their own profile fields. Empty fields
// are left untouched; a new password is re-hashed before storage.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil || subject != id {
		writeError(w, http.StatusUnauthorized, "You can only update your own account!")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found!")
			return
		}
		writeInternalError(w)
		return
	}

	if username := strings.TrimSpace(req.Username); username != "" {
		user.Username = username
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = email
	}
	if avatar := strings.TrimSpace(req.Avatar); avatar != "" {
		user.Avatar = avatar
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordHashCost)
		if err != nil {
			writeInternalError(w)
			return
		}
		user.PasswordHash = string(hashed)
	}

	updated, err := h.userService.Update(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "Email already in use")
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found!")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteUser removes the caller's own account and ends the session.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil || subject != id {
		writeError(w, http.StatusUnauthorized, "You can only delete your own account!")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found!")
			return
		}
		writeInternalError(w)
		return
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, "User has been deleted!")
}

// GetUserListings returns the caller's own listings.
func (h *UserHandler) GetUserListings(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil || subject != id {
		writeError(w, http.StatusUnauthorized, "You can only view your own listings!")
		return
	}

	listings, err := h.listingService.ListByUser(r.Context(), id)
	if err != nil {
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// GetUser returns a user's public profile (the password hash is
// unserializable by construction).
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found!")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}
