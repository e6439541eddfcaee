package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/http/response"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
	"github.com/xwerkax/BloomlyApp/internal/services"
)

type AnalysisHandler struct {
	log      *logger.Logger
	analysis services.AnalysisService
	recs     services.RecommendationService
	training services.TrainingService
	th       config.Thresholds
}

func NewAnalysisHandler(
	baseLog *logger.Logger,
	analysis services.AnalysisService,
	recs services.RecommendationService,
	training services.TrainingService,
	th config.Thresholds,
) *AnalysisHandler {
	return &AnalysisHandler{
		log:      baseLog.With("handler", "AnalysisHandler"),
		analysis: analysis,
		recs:     recs,
		training: training,
		th:       th,
	}
}

// GET /api/plants/:id/analysis
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	a, err := h.analysis.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}

// POST /api/plants/:id/analysis
func (h *AnalysisHandler) UpdateAnalysis(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	a, err := h.analysis.UpdateAnalysis(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"analysis": a})
}

type applyRequest struct {
	MinConfidence *float64 `json:"min_confidence"`
}

// POST /api/plants/:id/recommendation/apply
func (h *AnalysisHandler) ApplyRecommendation(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	var req applyRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	minConf := h.th.ApplyMinConfidence
	if req.MinConfidence != nil {
		minConf = *req.MinConfidence
	}
	res, err := h.recs.Apply(c.Request.Context(), id, minConf)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// POST /api/plants/:id/model/train
func (h *AnalysisHandler) TrainModel(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	sum, err := h.training.Train(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"model": sum})
}

// GET /api/models
func (h *AnalysisHandler) ModelStats(c *gin.Context) {
	stats, err := h.training.ModelStats(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"models": stats, "count": len(stats)})
}
