package projects

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slatehq/slate/internal/api/middleware"
	"github.com/slatehq/slate/internal/fields"
	"github.com/slatehq/slate/internal/metrics"
	"github.com/slatehq/slate/internal/models"
	"github.com/slatehq/slate/internal/permissions"
	"github.com/slatehq/slate/internal/storage"
)

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeForbidden        = "FORBIDDEN"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError maps permission engine errors onto HTTP responses.
func writeEngineError(w http.ResponseWriter, err error, logPrefix string) {
	switch {
	case errors.Is(err, permissions.ErrNotFound):
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
	case errors.Is(err, permissions.ErrForbidden):
		metrics.PermissionDeniedTotal.Inc()
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
	case permissions.IsBadRequest(err):
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, err.Error())
	default:
		log.Printf("%s: %v", logPrefix, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
	}
}

// ProjectResponse is the API representation of a project.
type ProjectResponse struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Description      string                   `json:"description,omitempty"`
	OwnerID          string                   `json:"owner_id"`
	Visibility       string                   `json:"visibility"`
	Permissions      []models.Permission      `json:"permissions"`
	GroupPermissions []models.GroupPermission `json:"group_permissions"`
	Fields           []models.FieldValue      `json:"fields"`
	CreatedAt        string                   `json:"created_at"`
	UpdatedAt        string                   `json:"updated_at"`
}

// RoleResponse reports the caller's effective role on a project.
type RoleResponse struct {
	Role    string `json:"role,omitempty"`
	HasRole bool   `json:"has_role"`
}

// Handler handles project endpoints.
type Handler struct {
	storage   storage.Storage
	engine    *permissions.Engine
	validator *fields.Validator
}

// NewHandler creates a new project handler.
func NewHandler(store storage.Storage, engine *permissions.Engine, validator *fields.Validator) *Handler {
	return &Handler{storage: store, engine: engine, validator: validator}
}

// Request types

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type GrantUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

type VisibilityRequest struct {
	Visibility string `json:"visibility"`
}

type SetFieldsRequest struct {
	Values []models.FieldValue `json:"values"`
}

// List returns the projects accessible to the caller: owned, granted
// directly or through a group, or public.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	projects, err := h.storage.Projects().ListAccessible(ctx, userID)
	if err != nil {
		log.Printf("list projects error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*ProjectResponse, len(projects))
	for i, p := range projects {
		resp[i] = projectToResponse(p)
	}
	jsonOK(w, resp)
}

// Create creates a new project. The caller becomes the owner and the project
// starts private.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateDescription(req.Description); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project := models.NewProject(strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), userID)
	project.ID = uuid.New().String()

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		log.Printf("create project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project created: %s (%s) owner %s", project.Name, project.ID, userID)
	jsonCreated(w, projectToResponse(project))
}

// GetByID returns a project. Requires view access.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.RequireAccess(ctx, id, userID)
	if err != nil {
		writeEngineError(w, err, "get project error")
		return
	}

	jsonOK(w, projectToResponse(project))
}

// Update updates a project's name or description. Requires edit access.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.RequireEdit(ctx, id, userID)
	if err != nil {
		writeEngineError(w, err, "update project error")
		return
	}

	if req.Name != "" {
		if err := ValidateName(req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.Name = strings.TrimSpace(req.Name)
	}
	if req.Description != "" {
		if err := ValidateDescription(req.Description); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.Description = strings.TrimSpace(req.Description)
	}

	project.UpdatedAt = time.Now()

	if err := h.storage.Projects().Update(ctx, project); err != nil {
		log.Printf("update project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project updated: %s (%s)", project.Name, project.ID)
	jsonOK(w, projectToResponse(project))
}

// Delete deletes a project. Only the owner may delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.RequireOwner(ctx, id, userID)
	if err != nil {
		writeEngineError(w, err, "delete project error")
		return
	}

	if err := h.storage.Projects().Delete(ctx, id); err != nil {
		log.Printf("delete project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project deleted: %s (%s)", project.Name, project.ID)
	jsonNoContent(w)
}

// GetUsers returns the owner and direct collaborators. Requires view access.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	users, err := h.engine.Users(ctx, id, userID)
	if err != nil {
		writeEngineError(w, err, "get project users error")
		return
	}

	jsonOK(w, users)
}

// GetGroups returns the project's group grants. Requires view access.
func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	grants, err := h.engine.Groups(ctx, id, userID)
	if err != nil {
		writeEngineError(w, err, "get project groups error")
		return
	}

	jsonOK(w, grants)
}

// GetRole returns the caller's effective role on the project, folding in
// ownership, direct grants, and group grants. Requires view access.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.RequireAccess(ctx, id, userID)
	if err != nil {
		writeEngineError(w, err, "get project role error")
		return
	}

	role, found, err := h.engine.EffectiveRole(ctx, project, userID)
	if err != nil {
		writeEngineError(w, err, "get project role error")
		return
	}

	resp := &RoleResponse{HasRole: found}
	if found {
		resp.Role = string(role)
	}
	jsonOK(w, resp)
}

// SetVisibility changes the project visibility. Only the owner may change it.
func (h *Handler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	visibility, err := ValidateVisibility(req.Visibility)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.SetVisibility(ctx, id, userID, visibility)
	if err != nil {
		writeEngineError(w, err, "set visibility error")
		return
	}

	log.Printf("project %s visibility set to %s", id, visibility)
	jsonOK(w, projectToResponse(project))
}

// SetFields validates and stores custom field values. Requires edit access.
// Values are validated as a whole; nothing is written when any value fails.
func (h *Handler) SetFields(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if _, err := h.engine.RequireEdit(ctx, id, userID); err != nil {
		writeEngineError(w, err, "set fields error")
		return
	}

	values, err := h.validator.ValidateValues(ctx, req.Values)
	if err != nil {
		var verr *fields.ValidationError
		if errors.As(err, &verr) {
			metrics.FieldValidationsTotal.WithLabelValues("rejected").Inc()
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, verr.Error())
			return
		}
		var ferr *fields.InvalidFieldError
		if errors.As(err, &ferr) {
			metrics.FieldValidationsTotal.WithLabelValues("rejected").Inc()
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, ferr.Error())
			return
		}
		log.Printf("set fields error: validate: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.FieldValidationsTotal.WithLabelValues("accepted").Inc()

	if err := h.storage.Projects().SetFieldValues(ctx, id, values); err != nil {
		log.Printf("set fields error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, id)
	if err != nil || project == nil {
		log.Printf("set fields error: reload: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, projectToResponse(project))
}

// GrantUser grants a role to a user identified by email. Only the owner may
// grant; granting to an already-granted user updates the role in place.
func (h *Handler) GrantUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req GrantUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "email is required")
		return
	}

	role, err := ValidateRole(req.Role)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.GrantUser(ctx, id, userID, req.Email, role)
	if err != nil {
		writeEngineError(w, err, "grant user error")
		return
	}

	metrics.GrantMutationsTotal.WithLabelValues("user").Inc()
	log.Printf("project %s: granted %s to %s", id, role, req.Email)
	jsonOK(w, projectToResponse(project))
}

// UpdateUserRole changes an existing direct grant's role. Owner only.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userId")

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	role, err := ValidateRole(req.Role)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.UpdateUserRole(ctx, id, userID, targetID, role)
	if err != nil {
		writeEngineError(w, err, "update user role error")
		return
	}

	metrics.GrantMutationsTotal.WithLabelValues("user").Inc()
	log.Printf("project %s: user %s role set to %s", id, targetID, role)
	jsonOK(w, projectToResponse(project))
}

// RevokeUser removes a direct grant. Owner only.
func (h *Handler) RevokeUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userId")

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.RevokeUser(ctx, id, userID, targetID)
	if err != nil {
		writeEngineError(w, err, "revoke user error")
		return
	}

	metrics.GrantMutationsTotal.WithLabelValues("user").Inc()
	log.Printf("project %s: revoked user %s", id, targetID)
	jsonOK(w, projectToResponse(project))
}

// GrantGroup grants a role to a group. Owner only.
func (h *Handler) GrantGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	groupID := chi.URLParam(r, "groupId")

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	role, err := ValidateRole(req.Role)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.GrantGroup(ctx, id, userID, groupID, role)
	if err != nil {
		writeEngineError(w, err, "grant group error")
		return
	}

	metrics.GrantMutationsTotal.WithLabelValues("group").Inc()
	log.Printf("project %s: granted %s to group %s", id, role, groupID)
	jsonOK(w, projectToResponse(project))
}

// UpdateGroupRole changes an existing group grant's role. Owner only.
func (h *Handler) UpdateGroupRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	groupID := chi.URLParam(r, "groupId")

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	role, err := ValidateRole(req.Role)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.UpdateGroupRole(ctx, id, userID, groupID, role)
	if err != nil {
		writeEngineError(w, err, "update group role error")
		return
	}

	metrics.GrantMutationsTotal.WithLabelValues("group").Inc()
	log.Printf("project %s: group %s role set to %s", id, groupID, role)
	jsonOK(w, projectToResponse(project))
}

// RevokeGroup removes a group grant. Owner only.
func (h *Handler) RevokeGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	groupID := chi.URLParam(r, "groupId")

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	project, err := h.engine.RevokeGroup(ctx, id, userID, groupID)
	if err != nil {
		writeEngineError(w, err, "revoke group error")
		return
	}

	metrics.GrantMutationsTotal.WithLabelValues("group").Inc()
	log.Printf("project %s: revoked group %s", id, groupID)
	jsonOK(w, projectToResponse(project))
}

func projectToResponse(p *models.Project) *ProjectResponse {
	resp := &ProjectResponse{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		OwnerID:          p.OwnerID,
		Visibility:       string(p.Visibility),
		Permissions:      p.Permissions,
		GroupPermissions: p.GroupPermissions,
		Fields:           p.Fields,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Permissions == nil {
		resp.Permissions = []models.Permission{}
	}
	if resp.GroupPermissions == nil {
		resp.GroupPermissions = []models.GroupPermission{}
	}
	if resp.Fields == nil {
		resp.Fields = []models.FieldValue{}
	}
	return resp
}
