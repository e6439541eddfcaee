package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/http/response"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

type PlantHandler struct {
	log       *logger.Logger
	plants    services.PlantService
	waterings services.WateringService
}

func NewPlantHandler(baseLog *logger.Logger, plants services.PlantService, waterings services.WateringService) *PlantHandler {
	return &PlantHandler{
		log:       baseLog.With("handler", "PlantHandler"),
		plants:    plants,
		waterings: waterings,
	}
}

type createPlantRequest struct {
	OwnerID             uuid.UUID `json:"owner_id"`
	Name                string    `json:"name"`
	Species             string    `json:"species"`
	Category            string    `json:"category"`
	Difficulty          string    `json:"difficulty"`
	DefaultIntervalDays int       `json:"default_interval_days"`
}

// POST /api/plants
func (h *PlantHandler) CreatePlant(c *gin.Context) {
	var req createPlantRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	plant, err := h.plants.Create(c.Request.Context(), &types.Plant{
		OwnerID:             req.OwnerID,
		Name:                req.Name,
		Species:             req.Species,
		Category:            req.Category,
		Difficulty:          req.Difficulty,
		DefaultIntervalDays: req.DefaultIntervalDays,
	})
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"plant": plant})
}

// GET /api/plants
func (h *PlantHandler) ListPlants(c *gin.Context) {
	plants, err := h.plants.List(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"plants": plants})
}

// GET /api/plants/:id
func (h *PlantHandler) GetPlant(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	plant, err := h.plants.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"plant": plant})
}

// DELETE /api/plants/:id
func (h *PlantHandler) DeactivatePlant(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	if err := h.plants.Deactivate(c.Request.Context(), id); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type recordWateringRequest struct {
	OccurredAt  *time.Time `json:"occurred_at"`
	SoilState   string     `json:"soil_state"`
	WaterAmount string     `json:"water_amount"`
	Notes       string     `json:"notes"`
	ReminderID  *uuid.UUID `json:"reminder_id"`
}

// POST /api/plants/:id/waterings
func (h *PlantHandler) RecordWatering(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	var req recordWateringRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	ev := &types.WateringEvent{
		SoilState:   req.SoilState,
		WaterAmount: req.WaterAmount,
		Notes:       req.Notes,
		ReminderID:  req.ReminderID,
	}
	if req.OccurredAt != nil {
		ev.OccurredAt = *req.OccurredAt
	}
	out, err := h.waterings.Record(c.Request.Context(), id, ev)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"watering": out})
}

// GET /api/plants/:id/waterings
func (h *PlantHandler) ListWaterings(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	evs, err := h.waterings.List(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"waterings": evs})
}
