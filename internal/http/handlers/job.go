package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/xwerkax/BloomlyApp/internal/http/response"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

type JobHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewJobHandler(baseLog *logger.Logger, jobs services.JobService) *JobHandler {
	return &JobHandler{log: baseLog.With("handler", "JobHandler"), jobs: jobs}
}

// POST /api/jobs
func (h *JobHandler) Enqueue(c *gin.Context) {
	var req services.EnqueueRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	job, err := h.jobs.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}

// GET /api/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context(), c.Query("job_type"), queryInt(c, "limit", 50))
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	jobID, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	job, err := h.jobs.Cancel(c.Request.Context(), jobID)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
