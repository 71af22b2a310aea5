package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/monopoly-server/internal/errors"
)

// DefaultOpenAPIPath 相对工作目录的接口文档路径
const DefaultOpenAPIPath = "docs/api/openapi.yaml"

// registerOpenAPIRoutes 提供 /openapi 与 /docs/redoc
func (r *Router) registerOpenAPIRoutes() {
	r.engine.GET("/openapi", r.serveOpenAPI)
	r.engine.GET("/openapi.yaml", r.serveOpenAPI)
	r.engine.GET("/docs/redoc", serveRedoc)
}

func (r *Router) serveOpenAPI(c *gin.Context) {
	if _, err := os.Stat(r.openAPIPath); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrNotFound, "接口文档不存在"))
		return
	}
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.File(r.openAPIPath)
}

const redocPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Monopoly Server API - Redoc</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc spec-url="/openapi"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
  </body>
</html>`

func serveRedoc(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(redocPage))
}
