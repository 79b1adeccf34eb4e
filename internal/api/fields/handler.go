package fields

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	corefields "github.com/slatehq/slate/internal/fields"
	"github.com/slatehq/slate/internal/metrics"
	"github.com/slatehq/slate/internal/models"
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

// DefinitionResponse is the API representation of a field definition.
type DefinitionResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Key          string                 `json:"key"`
	Type         string                 `json:"type"`
	Required     bool                   `json:"required"`
	Order        int                    `json:"order"`
	Options      []string               `json:"options,omitempty"`
	DefaultValue any                    `json:"default_value,omitempty"`
	Validation   models.FieldValidation `json:"validation"`
	Active       bool                   `json:"active"`
	Description  string                 `json:"description,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

// Handler handles field definition endpoints.
type Handler struct {
	storage   storage.Storage
	validator *corefields.Validator
}

// NewHandler creates a new field definition handler.
func NewHandler(store storage.Storage, validator *corefields.Validator) *Handler {
	return &Handler{storage: store, validator: validator}
}

// CreateRequest is the request body for creating a field definition.
type CreateRequest struct {
	Name         string                 `json:"name"`
	Type         string                 `json:"type"`
	Required     bool                   `json:"required"`
	Order        int                    `json:"order"`
	Options      []string               `json:"options"`
	DefaultValue any                    `json:"default_value"`
	Validation   models.FieldValidation `json:"validation"`
	Description  string                 `json:"description"`
}

// UpdateRequest is the request body for updating a field definition.
// The type and key are immutable once created: stored values depend on them.
type UpdateRequest struct {
	Name        *string                 `json:"name,omitempty"`
	Required    *bool                   `json:"required,omitempty"`
	Order       *int                    `json:"order,omitempty"`
	Options     []string                `json:"options,omitempty"`
	Validation  *models.FieldValidation `json:"validation,omitempty"`
	Active      *bool                   `json:"active,omitempty"`
	Description *string                 `json:"description,omitempty"`
}

// ValidateRequest is the request body for the dry-run validation endpoint.
type ValidateRequest struct {
	Values []models.FieldValue `json:"values"`
}

// ValidateResponse is the result of a dry-run validation.
type ValidateResponse struct {
	Valid  bool                    `json:"valid"`
	Errors []corefields.FieldError `json:"errors,omitempty"`
}

// ListActive returns the active field definitions, for form rendering.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	defs, err := h.storage.Fields().ListActive(r.Context())
	if err != nil {
		log.Printf("list active fields error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, definitionsToResponse(defs))
}

// List returns all field definitions including inactive ones (admin only).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.storage.Fields().List(r.Context())
	if err != nil {
		log.Printf("list fields error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, definitionsToResponse(defs))
}

// Create creates a new field definition (admin only).
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
	fieldType, err := ValidateType(req.Type)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateOptions(fieldType, req.Options); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateConstraints(fieldType, req.Validation); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()

	def := models.NewFieldDefinition(strings.TrimSpace(req.Name), fieldType)
	def.ID = uuid.New().String()
	def.Required = req.Required
	def.Order = req.Order
	def.Options = req.Options
	def.DefaultValue = req.DefaultValue
	def.Validation = req.Validation
	def.Description = strings.TrimSpace(req.Description)

	// Keys are unique across the registry.
	existing, err := h.storage.Fields().GetByKey(ctx, def.Key)
	if err != nil {
		log.Printf("create field error: check key: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "a field with that key already exists")
		return
	}

	if err := h.storage.Fields().Create(ctx, def); err != nil {
		log.Printf("create field error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("field definition created: %s (%s)", def.Key, def.ID)
	jsonCreated(w, definitionToResponse(def))
}

// GetByID returns a field definition (admin only).
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}
	jsonOK(w, definitionToResponse(def))
}

// Update updates a field definition (admin only). The type and key never
// change; deactivate the field and create a new one instead.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		def.Name = strings.TrimSpace(*req.Name)
	}
	if req.Options != nil {
		if err := ValidateOptions(def.Type, req.Options); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		def.Options = req.Options
	}
	if req.Validation != nil {
		if err := ValidateConstraints(def.Type, *req.Validation); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		def.Validation = *req.Validation
	}
	if req.Required != nil {
		def.Required = *req.Required
	}
	if req.Order != nil {
		def.Order = *req.Order
	}
	if req.Active != nil {
		def.Active = *req.Active
	}
	if req.Description != nil {
		def.Description = strings.TrimSpace(*req.Description)
	}

	def.UpdatedAt = time.Now()

	if err := h.storage.Fields().Update(r.Context(), def); err != nil {
		log.Printf("update field error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("field definition updated: %s (%s)", def.Key, def.ID)
	jsonOK(w, definitionToResponse(def))
}

// Delete removes a field definition (admin only). Stored project values for
// the field are removed with it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	def, ok := h.loadDefinition(w, r)
	if !ok {
		return
	}

	if err := h.storage.Fields().Delete(r.Context(), def.ID); err != nil {
		log.Printf("delete field error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("field definition deleted: %s (%s)", def.Key, def.ID)
	jsonNoContent(w)
}

// Validate dry-runs the supplied values against the current definitions.
// It shares the validator with the project write path, so the verdict here
// is the verdict a write would get.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	_, err := h.validator.ValidateValues(r.Context(), req.Values)
	if err == nil {
		metrics.FieldValidationsTotal.WithLabelValues("accepted").Inc()
		jsonOK(w, &ValidateResponse{Valid: true})
		return
	}

	var verr *corefields.ValidationError
	if errors.As(err, &verr) {
		metrics.FieldValidationsTotal.WithLabelValues("rejected").Inc()
		jsonOK(w, &ValidateResponse{Valid: false, Errors: verr.Errors})
		return
	}
	var ferr *corefields.InvalidFieldError
	if errors.As(err, &ferr) {
		metrics.FieldValidationsTotal.WithLabelValues("rejected").Inc()
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, ferr.Error())
		return
	}

	log.Printf("validate fields error: %v", err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
}

// loadDefinition fetches the definition from the URL parameter and writes an
// error response on failure.
func (h *Handler) loadDefinition(w http.ResponseWriter, r *http.Request) (*models.FieldDefinition, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "field id required")
		return nil, false
	}

	def, err := h.storage.Fields().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get field error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if def == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "field definition not found")
		return nil, false
	}
	return def, true
}

func definitionToResponse(d *models.FieldDefinition) *DefinitionResponse {
	return &DefinitionResponse{
		ID:           d.ID,
		Name:         d.Name,
		Key:          d.Key,
		Type:         string(d.Type),
		Required:     d.Required,
		Order:        d.Order,
		Options:      d.Options,
		DefaultValue: d.DefaultValue,
		Validation:   d.Validation,
		Active:       d.Active,
		Description:  d.Description,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}

func definitionsToResponse(defs []*models.FieldDefinition) []*DefinitionResponse {
	resp := make([]*DefinitionResponse, len(defs))
	for i, d := range defs {
		resp[i] = definitionToResponse(d)
	}
	return resp
}
