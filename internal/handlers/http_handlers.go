package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/metrics"
	"campaignlottery/internal/services"
)

const campaignKey = "campaignID"

var campaignPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service *services.LotteryService
	metrics *metrics.Metrics
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.LotteryService, m *metrics.Metrics) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		metrics: m,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	campaign := router.Group("/campaigns/:campaignID")
	campaign.Use(h.CampaignMiddleware())
	campaign.POST("/applicants", h.Register)
	campaign.GET("/stats", h.Stats)
	campaign.GET("/winners.csv", h.ExportWinnersCSV)
}

// CampaignMiddleware rejects malformed campaign ids before any store access.
func (h *HTTPHandler) CampaignMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("campaignID")
		if !campaignPattern.MatchString(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
			return
		}
		c.Set(campaignKey, id)
		c.Next()
	}
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register handles a registration submitted by a signed-in user.
func (h *HTTPHandler) Register(c *gin.Context) {
	start := time.Now()
	campaignID := c.GetString(campaignKey)

	var app services.Application
	if err := c.ShouldBindJSON(&app); err != nil {
		h.observe(campaignID, metrics.OutcomeInvalid, start)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	applicant, err := h.service.Register(c.Request.Context(), campaignID, app)
	switch {
	case err == nil:
		h.observe(campaignID, metrics.OutcomeCreated, start)
		c.JSON(http.StatusCreated, gin.H{
			"id":        applicant.ID,
			"status":    applicant.Status,
			"appliedAt": applicant.AppliedAt,
		})
	case errors.Is(err, services.ErrInvalidApplication):
		h.observe(campaignID, metrics.OutcomeInvalid, start)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicatePhone), errors.Is(err, services.ErrAlreadyApplied):
		h.observe(campaignID, metrics.OutcomeDuplicate, start)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.observe(campaignID, metrics.OutcomeError, start)
		logger.Errorf("register in campaign %s: %v", campaignID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
	}
}

// Stats returns applicant counts per status.
func (h *HTTPHandler) Stats(c *gin.Context) {
	campaignID := c.GetString(campaignKey)
	counts, err := h.service.Stats(c.Request.Context(), campaignID)
	if err != nil {
		logger.Errorf("stats for campaign %s: %v", campaignID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "applicant store unavailable"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ExportWinnersCSV handles the request to download the recorded winners as a CSV file.
func (h *HTTPHandler) ExportWinnersCSV(c *gin.Context) {
	campaignID := c.GetString(campaignKey)
	winners, err := h.service.Winners(c.Request.Context(), campaignID)
	if err != nil {
		logger.Errorf("winners for campaign %s: %v", campaignID, err)
		c.String(http.StatusServiceUnavailable, "Applicant store unavailable")
		return
	}

	data, err := artifact.FormatCSV.Encode(winners)
	if err != nil {
		logger.Errorf("Error writing CSV: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}
	c.Header("Content-Disposition", "attachment;filename="+campaignID+"_winners.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *HTTPHandler) observe(campaignID, outcome string, start time.Time) {
	if h.metrics != nil {
		h.metrics.ObserveRegistration(campaignID, outcome, start)
	}
}
