package user_api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-visitors/internal/auth"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	users "ms-visitors/internal/users/service"
	"ms-visitors/internal/utils"
)

type UserService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Me(ctx context.Context, identity models.Identity) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, actor models.Identity, in models.NewUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, actor models.Identity, id string, patch models.UserPatch) (*models.User, error)
	ChangePassword(ctx context.Context, identity models.Identity, req users.ChangePasswordRequest) error
}

type Handler struct {
	Users  UserService
	Logger *logger.Logger
}

func NewHandler(svc UserService, log *logger.Logger) *Handler {
	return &Handler{Users: svc, Logger: log}
}

// RegisterRoutes mounts the auth routes. login may be nil when tokens come
// from an external provider, in which case no login route is exposed.
func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler, login func(http.Handler) http.Handler) {
	if login != nil {
		r.With(login).Post("/login", h.Login)
	}

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/me", h.Me)
		r.Put("/me/password", h.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/users", h.ListUsers)
			r.Post("/users", h.CreateUser)
			r.Put("/users/{id}", h.UpdateUser)
		})
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid login request", err)
		return
	}

	resp, err := h.Users.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, "Login failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Login successful", resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	user, err := h.Users.Me(r.Context(), identity)
	if err != nil {
		utils.WriteError(w, "Failed to load profile", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profile retrieved successfully", user)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req users.ChangePasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid password change", err)
		return
	}
	identity, _ := auth.FromContext(r.Context())
	if err := h.Users.ChangePassword(r.Context(), identity, req); err != nil {
		utils.WriteError(w, "Failed to change password", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.ListUsers(r.Context())
	if err != nil {
		utils.WriteError(w, "Failed to list users", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Users retrieved successfully", list)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.NewUserInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, "Invalid user", err)
		return
	}
	identity, _ := auth.FromContext(r.Context())
	user, err := h.Users.CreateUser(r.Context(), identity, in)
	if err != nil {
		utils.WriteError(w, "Failed to create user", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "User created successfully", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		utils.WriteError(w, "Invalid user update", err)
		return
	}
	identity, _ := auth.FromContext(r.Context())
	user, err := h.Users.UpdateUser(r.Context(), identity, chi.URLParam(r, "id"), patch)
	if err != nil {
		utils.WriteError(w, "Failed to update user", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "User updated successfully", user)
}
