package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/perfhub/perfhub/modules/perftest/domain/capability"
	"github.com/perfhub/perfhub/modules/perftest/infrastructure/persistence"
	"github.com/perfhub/perfhub/modules/perftest/presentation/controllers/dtos"
	"github.com/perfhub/perfhub/modules/perftest/services"
	"github.com/perfhub/perfhub/pkg/application"
	"github.com/perfhub/perfhub/pkg/mapping"
	"github.com/perfhub/perfhub/pkg/middleware"
)

type CapabilitiesController struct {
	app      application.Application
	service  *services.CapabilityService
	basePath string
}

func NewCapabilitiesController(app application.Application) application.Controller {
	return &CapabilitiesController{
		app:      app,
		service:  app.Service(services.CapabilityService{}).(*services.CapabilityService),
		basePath: "/capabilities",
	}
}

func (c *CapabilitiesController) Key() string {
	return c.basePath
}

func (c *CapabilitiesController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.WithTransaction())
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
}

func (c *CapabilitiesController) List(w http.ResponseWriter, r *http.Request) {
	params := &capability.FindParams{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	items, err := c.service.GetPaginated(r.Context(), params)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	total, err := c.service.Count(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": mapping.MapViewModels(items, dtos.NewCapabilityResponse),
		"total": total,
	})
}

func (c *CapabilitiesController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entity, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		writeCapabilityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewCapabilityResponse(entity))
}

func (c *CapabilitiesController) Create(w http.ResponseWriter, r *http.Request) {
	dto, ok := decodeCapability(w, r)
	if !ok {
		return
	}
	entity, err := c.service.Create(r.Context(), dto.ToEntity())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewCapabilityResponse(entity))
}

func (c *CapabilitiesController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	dto, ok := decodeCapability(w, r)
	if !ok {
		return
	}
	entity, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		writeCapabilityError(w, err)
		return
	}
	updated, err := c.service.Update(r.Context(), dto.Apply(entity))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dtos.NewCapabilityResponse(updated))
}

func (c *CapabilitiesController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := c.service.Delete(r.Context(), id); err != nil {
		writeCapabilityError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func decodeCapability(w http.ResponseWriter, r *http.Request) (*dtos.SaveCapabilityDTO, bool) {
	dto := &dtos.SaveCapabilityDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return nil, false
	}
	if fields, ok := dto.Ok(r.Context()); !ok {
		writeJSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "validation failed", fields)
		return nil, false
	}
	return dto, true
}

func writeCapabilityError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrCapabilityNotFound) {
		writeJSONError(w, http.StatusNotFound, "CAPABILITY_NOT_FOUND", "capability not found")
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_ID", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
