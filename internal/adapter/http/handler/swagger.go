package handler

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml swagger.html
var apiDocs embed.FS

// SwaggerSpec serves the OpenAPI document.
func SwaggerSpec(c *gin.Context) {
	serveDoc(c, "openapi.yaml", "application/yaml")
}

// SwaggerUI serves the browser UI, which loads /swagger/spec.
func SwaggerUI(c *gin.Context) {
	serveDoc(c, "swagger.html", "text/html; charset=utf-8")
}

func serveDoc(c *gin.Context, name, contentType string) {
	body, err := apiDocs.ReadFile(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, contentType, body)
}
