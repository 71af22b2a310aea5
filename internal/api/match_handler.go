package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/repository"
)

// MatchHandler 对局流水查询
type MatchHandler struct {
	repo repository.MatchRepository
}

// NewMatchHandler 创建对局流水查询处理器
func NewMatchHandler(repo repository.MatchRepository) *MatchHandler {
	return &MatchHandler{repo: repo}
}

// pageQuery 分页查询参数
type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func bindPage(c *gin.Context) (*repository.Pagination, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "分页参数无效"))
		return nil, false
	}
	return repository.NewPagination(q.Page, q.PageSize), true
}

// RegisterRoutes 注册路由
func (h *MatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	matches := router.Group("/matches")
	{
		matches.GET("", h.ListMatches)
		matches.GET("/:id", h.GetMatch)
		matches.GET("/:id/events", h.ListEvents)
	}
}

// ListMatches 按创建时间倒序列出对局
// @Summary 对局列表
// @Tags Matches
// @Produce json
// @Param page query int false "页码" minimum(1)
// @Param page_size query int false "每页条数" minimum(1) maximum(100)
// @Success 200 {array} models.Match
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/v1/matches [get]
func (h *MatchHandler) ListMatches(c *gin.Context) {
	p, ok := bindPage(c)
	if !ok {
		return
	}
	matches, err := h.repo.List(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, matches, p)
}

// GetMatch 查询单局
// @Summary 查询单局
// @Tags Matches
// @Produce json
// @Param id path string true "对局ID"
// @Success 200 {object} models.Match
// @Failure 404 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/v1/matches/{id} [get]
func (h *MatchHandler) GetMatch(c *gin.Context) {
	match, err := h.repo.FindByMatchID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, match)
}

// ListEvents 按序号列出对局事件
// @Summary 对局事件流水
// @Tags Matches
// @Produce json
// @Param id path string true "对局ID"
// @Param page query int false "页码" minimum(1)
// @Param page_size query int false "每页条数" minimum(1) maximum(100)
// @Success 200 {array} models.MatchEvent
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/v1/matches/{id}/events [get]
func (h *MatchHandler) ListEvents(c *gin.Context) {
	p, ok := bindPage(c)
	if !ok {
		return
	}
	matchID := c.Param("id")
	if _, err := h.repo.FindByMatchID(c.Request.Context(), matchID); err != nil {
		respondError(c, err)
		return
	}
	events, err := h.repo.ListEvents(c.Request.Context(), matchID, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, events, p)
}
