package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/homefind/usersvc/internal/platform/httpx"
	"github.com/homefind/usersvc/internal/shared"
	"github.com/homefind/usersvc/internal/token"
)

// Handler wires the users HTTP surface.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	validator    *validator.Validate
	requireAuth  func(http.Handler) http.Handler
	optionalAuth func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, requireAuth, optionalAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		validator:    validator.New(),
		requireAuth:  requireAuth,
		optionalAuth: optionalAuth,
	}
}

// MountRoutes registers user routes. Creation takes optional auth so the
// self-registration policy can be decided by the service; everything else
// never runs without an authenticated identity.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.optionalAuth).Post("/", h.createUser)
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
		r.Put("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})
}

// UserResponse is the sanitized API representation of a user. The credential
// hash and the raw external subject never appear in responses.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name,omitempty"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	HousingPreference string    `json:"housing_preference,omitempty"`
	ListingGroup      string    `json:"listing_group,omitempty"`
	Role              string    `json:"role"`
	External          bool      `json:"external"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewUserResponse maps the domain entity to its API representation.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                u.ID.String(),
		Email:             u.Email,
		Name:              u.Name,
		PhoneNumber:       u.PhoneNumber,
		HousingPreference: u.HousingPreference,
		ListingGroup:      u.ListingGroup,
		Role:              u.Role,
		External:          u.External(),
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

type createUserRequest struct {
	Email             string `json:"email" validate:"omitempty,email"`
	Name              string `json:"name" validate:"omitempty,max=100"`
	PhoneNumber       string `json:"phone_number" validate:"omitempty,max=20"`
	HousingPreference string `json:"housing_preference" validate:"omitempty,max=50"`
	ListingGroup      string `json:"listing_group" validate:"omitempty,max=50"`
	Password          string `json:"password" validate:"omitempty,min=8"`
	Role              string `json:"role" validate:"omitempty,oneof=user admin"`
}

type updateUserRequest struct {
	Email             *string `json:"email" validate:"omitempty,email"`
	Name              *string `json:"name" validate:"omitempty,max=100"`
	PhoneNumber       *string `json:"phone_number" validate:"omitempty,max=20"`
	HousingPreference *string `json:"housing_preference" validate:"omitempty,max=50"`
	ListingGroup      *string `json:"listing_group" validate:"omitempty,max=50"`
	Password          *string `json:"password" validate:"omitempty,min=8"`
	IsActive          *bool   `json:"is_active"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid request body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}

	user, err := h.service.CreateUser(r.Context(), token.IdentityFromContext(r.Context()), CreateUserInput{
		Email:             req.Email,
		Name:              req.Name,
		PhoneNumber:       req.PhoneNumber,
		HousingPreference: req.HousingPreference,
		ListingGroup:      req.ListingGroup,
		Password:          req.Password,
		Role:              req.Role,
	})
	if err != nil {
		h.respondError(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewUserResponse(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ListFilter{
		Email:             query.Get("email"),
		Name:              query.Get("name"),
		HousingPreference: query.Get("housing_preference"),
		ListingGroup:      query.Get("listing_group"),
	}

	users, err := h.service.ListUsers(r.Context(), token.IdentityFromContext(r.Context()), filter)
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, NewUserResponse(&users[i]))
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), token.IdentityFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewUserResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid request body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}

	user, err := h.service.UpdateUser(r.Context(), token.IdentityFromContext(r.Context()), id, UpdateUserInput{
		Email:             req.Email,
		Name:              req.Name,
		PhoneNumber:       req.PhoneNumber,
		HousingPreference: req.HousingPreference,
		ListingGroup:      req.ListingGroup,
		Password:          req.Password,
		IsActive:          req.IsActive,
	})
	if err != nil {
		h.respondError(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewUserResponse(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), token.IdentityFromContext(r.Context()), id); err != nil {
		h.respondError(w, "delete user", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && !isClientError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	for _, sentinel := range []error{
		shared.ErrNotFound, shared.ErrConflict, shared.ErrValidation,
		shared.ErrForbidden, shared.ErrUnauthorized, shared.ErrInvalidCredentials,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id", shared.ErrValidation)
	}
	return id, nil
}

func validationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: field %s", shared.ErrValidation, fieldErrs[0].Field())
	}
	return fmt.Errorf("%w: %v", shared.ErrValidation, err)
}
