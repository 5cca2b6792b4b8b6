package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"roleinventory/internal/aggregate"
	"roleinventory/internal/app"
	"roleinventory/internal/graph"
	"roleinventory/internal/health"
	"roleinventory/internal/report"
)

// InventoryService 为路由依赖的服务能力。
type InventoryService interface {
	Collect(ctx context.Context) (*app.Run, error)
	Latest() (*app.Run, bool)
	RecentRuns(ctx context.Context, limit int) ([]graph.RunSummary, error)
}

// InventoryHandler 负责采集触发与报表查询。
type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

// NewInventoryHandler 构建一个新的 InventoryHandler。
func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// RegisterRoutes 将清单路由注册到给定的路由组。
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/collect", h.handleCollect)
	rg.GET("/report/latest", h.handleLatest)
	rg.GET("/report/latest.html", h.handleLatestHTML)
	rg.GET("/runs", h.handleRuns)
}

type runResponse struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	DurationMS int64                    `json:"duration_ms"`
	Tier       health.Tier              `json:"tier"`
	Total      int                      `json:"total"`
	Counts     map[string]int           `json:"counts"`
	Scores     []health.ScopeScore      `json:"scores"`
	Findings   []health.HealthFinding   `json:"findings"`
	Failures   aggregate.FailureSummary `json:"failures"`
	Files      []string                 `json:"files,omitempty"`
	Alerted    bool                     `json:"alerted"`
	GraphError string                   `json:"graph_error,omitempty"`
	Inventory  *aggregate.Inventory     `json:"inventory,omitempty"`
}

func toResponse(run *app.Run, full bool) runResponse {
	resp := runResponse{
		RunID:      run.RunID,
		StartedAt:  run.StartedAt,
		DurationMS: run.Duration.Milliseconds(),
		Tier:       run.Risk.Tier,
		Total:      run.Risk.Total,
		Counts:     run.Inventory.Counts(),
		Scores:     run.Risk.Scores,
		Findings:   run.Risk.Triggered(),
		Failures:   run.Bundle.Failures,
		Files:      run.Files,
		Alerted:    run.Alerted,
		GraphError: run.GraphErr,
	}
	if full {
		inv := run.Inventory
		resp.Inventory = &inv
	}
	return resp
}

func (h *InventoryHandler) handleCollect(c *gin.Context) {
	run, err := h.svc.Collect(c.Request.Context())
	if errors.Is(err, app.ErrCollectRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("collect failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(run, false))
}

func (h *InventoryHandler) handleLatest(c *gin.Context) {
	run, ok := h.svc.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed run yet"})
		return
	}
	c.JSON(http.StatusOK, toResponse(run, c.Query("full") == "1"))
}

func (h *InventoryHandler) handleLatestHTML(c *gin.Context) {
	run, ok := h.svc.Latest()
	if !ok {
		c.String(http.StatusNotFound, "no completed run yet")
		return
	}
	body, err := report.RenderHTML(run.Bundle)
	if err != nil {
		h.logger.Error("render html failed", zap.Error(err))
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (h *InventoryHandler) handleRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	runs, err := h.svc.RecentRuns(c.Request.Context(), limit)
	if errors.Is(err, app.ErrGraphDisabled) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("query runs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
