package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/middleware"
	"github.com/wfunc/monopoly-server/internal/repository"
)

// respondOK 成功响应
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondPage 分页响应
func respondPage(c *gin.Context, data interface{}, p *repository.Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":      p.Page,
			"page_size": p.PageSize,
			"total":     p.Total,
			"pages":     p.Pages(),
		},
	})
}

// respondError 错误响应，状态码由错误码决定；调用栈只写日志不返回
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	body := *appErr
	body.Stack = nil
	c.AbortWithStatusJSON(appErr.HTTPStatus(), errors.NewErrorResponse(&body, middleware.GetRequestID(c)))
}
