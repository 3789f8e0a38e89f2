package docs

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Mount serves the Swagger UI at prefix and prefix/*, loading the document
// from docURL.
func Mount(group *gin.RouterGroup, prefix, docURL string) {
	ui := ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL(docURL),
		ginSwagger.DocExpansion("list"),
		ginSwagger.DefaultModelsExpandDepth(1),
	)

	index := strings.TrimSuffix(group.BasePath(), "/") + prefix + "/index.html"
	redirect := func(c *gin.Context) {
		c.Redirect(http.StatusFound, index)
	}

	group.GET(prefix, redirect)
	group.GET(prefix+"/*any", func(c *gin.Context) {
		if rest := c.Param("any"); rest == "/" || rest == "" {
			redirect(c)
			return
		}
		ui(c)
	})
}
