package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xwerkax/BloomlyApp/internal/http/response"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

type ReminderHandler struct {
	log       *logger.Logger
	reminders services.ReminderService
	now       func() time.Time
}

func NewReminderHandler(baseLog *logger.Logger, reminders services.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		log:       baseLog.With("handler", "ReminderHandler"),
		reminders: reminders,
		now:       time.Now,
	}
}

// GET /api/plants/:id/reminders
func (h *ReminderHandler) ListForPlant(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	rows, err := h.reminders.ListForPlant(c.Request.Context(), id, queryInt(c, "limit", 50))
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reminders": rows})
}

// POST /api/plants/:id/reminders/refresh
func (h *ReminderHandler) Refresh(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	rem, outcome, err := h.reminders.RefreshReminder(c.Request.Context(), id, h.now())
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reminder": rem, "outcome": outcome})
}

// GET /api/reminders/due
func (h *ReminderHandler) Due(c *gin.Context) {
	rows, err := h.reminders.DueForNotification(c.Request.Context(), h.now())
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reminders": rows, "count": len(rows)})
}

// POST /api/reminders/:id/sent
func (h *ReminderHandler) MarkSent(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	if err := h.reminders.MarkSent(c.Request.Context(), id, h.now()); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/reminders/:id/done
func (h *ReminderHandler) MarkDone(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	if err := h.reminders.MarkDone(c.Request.Context(), id, h.now()); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type postponeRequest struct {
	Days int `json:"days"`
}

// POST /api/reminders/:id/postpone
func (h *ReminderHandler) Postpone(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	req := postponeRequest{Days: 1}
	if err := bindJSON(c, &req); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	rem, err := h.reminders.Postpone(c.Request.Context(), id, req.Days)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"reminder": rem})
}
