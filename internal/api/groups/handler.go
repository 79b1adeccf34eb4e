package groups

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slatehq/slate/internal/api/middleware"
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
	errCodeConflict         = "CONFLICT"
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

// MemberResponse is a group membership entry.
type MemberResponse struct {
	UserID  string `json:"user_id"`
	AddedAt string `json:"added_at"`
	AddedBy string `json:"added_by"`
}

// GroupResponse is the API representation of a group.
type GroupResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"owner_id"`
	Members     []MemberResponse `json:"members"`
	MemberCount int              `json:"member_count"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// Handler handles group management endpoints.
type Handler struct {
	storage storage.Storage
	engine  *permissions.Engine
}

// NewHandler creates a new group handler.
func NewHandler(store storage.Storage, engine *permissions.Engine) *Handler {
	return &Handler{storage: store, engine: engine}
}

// CreateRequest is the request body for creating a group.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateRequest is the request body for updating a group.
type UpdateRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// AddMemberRequest is the request body for adding a member.
type AddMemberRequest struct {
	Email string `json:"email"`
}

// ListMine returns the groups the caller owns or belongs to.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	groups, err := h.engine.UserGroups(ctx, userID)
	if err != nil {
		log.Printf("list groups error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		resp[i] = groupToResponse(g)
	}
	jsonOK(w, resp)
}

// Create creates a new group owned by the caller.
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

	group := models.NewGroup(strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), userID)
	group.ID = uuid.New().String()

	if err := h.storage.Groups().Create(ctx, group); err != nil {
		log.Printf("create group error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("group created: %s (%s)", group.Name, group.ID)
	jsonCreated(w, groupToResponse(group))
}

// GetByID returns a group. Only the owner and members may view it.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if !group.HasMember(userID) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return
	}

	jsonOK(w, groupToResponse(group))
}

// Update updates a group's name or description (owner only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	group, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		if err := ValidateName(req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		group.Name = strings.TrimSpace(req.Name)
	}
	if req.Description != "" {
		if err := ValidateDescription(req.Description); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		group.Description = strings.TrimSpace(req.Description)
	}

	group.UpdatedAt = time.Now()

	if err := h.storage.Groups().Update(r.Context(), group); err != nil {
		log.Printf("update group error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("group updated: %s (%s)", group.Name, group.ID)
	jsonOK(w, groupToResponse(group))
}

// Delete deletes a group (owner only). Project grants referencing the group
// are removed with it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	group, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.storage.Groups().Delete(r.Context(), group.ID); err != nil {
		log.Printf("delete group error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("group deleted: %s (%s)", group.Name, group.ID)
	jsonNoContent(w)
}

// AddMember adds a user to the group by email (owner only).
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	group, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "email is required")
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.storage.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("add member error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "no user with that email")
		return
	}

	// The owner has implicit membership and is never listed.
	if user.ID == group.OwnerID {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "owner is already a member")
		return
	}
	if group.HasMember(user.ID) {
		jsonError(w, http.StatusConflict, errCodeConflict, "user is already a member")
		return
	}

	member := &models.GroupMember{
		UserID:  user.ID,
		AddedAt: time.Now(),
		AddedBy: userID,
	}
	if err := h.storage.Groups().AddMember(ctx, group.ID, member); err != nil {
		log.Printf("add member error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("user %s added to group %s", user.ID, group.ID)
	jsonNoContent(w)
}

// RemoveMember removes a user from the group (owner only).
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	group, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "user id required")
		return
	}

	if group.OwnerID == targetID {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "cannot remove the group owner")
		return
	}

	found := false
	for _, m := range group.Members {
		if m.UserID == targetID {
			found = true
			break
		}
	}
	if !found {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "user is not a member")
		return
	}

	if err := h.storage.Groups().RemoveMember(r.Context(), group.ID, targetID); err != nil {
		log.Printf("remove member error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("user %s removed from group %s", targetID, group.ID)
	jsonNoContent(w)
}

// loadGroup fetches the group from the URL parameter and writes an error
// response on failure.
func (h *Handler) loadGroup(w http.ResponseWriter, r *http.Request) (*models.Group, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "group id required")
		return nil, false
	}

	group, err := h.storage.Groups().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get group error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if group == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "group not found")
		return nil, false
	}
	return group, true
}

// requireOwner loads the group and verifies the caller owns it.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (*models.Group, bool) {
	group, ok := h.loadGroup(w, r)
	if !ok {
		return nil, false
	}
	if group.OwnerID != middleware.GetUserID(r.Context()) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "access denied")
		return nil, false
	}
	return group, true
}

func groupToResponse(g *models.Group) *GroupResponse {
	members := make([]MemberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = MemberResponse{
			UserID:  m.UserID,
			AddedAt: m.AddedAt.Format(time.RFC3339),
			AddedBy: m.AddedBy,
		}
	}
	return &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		Members:     members,
		MemberCount: g.MemberCount(),
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   g.UpdatedAt.Format(time.RFC3339),
	}
}
