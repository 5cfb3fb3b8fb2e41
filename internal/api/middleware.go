package api

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requireJSON rejects requests whose Accept header excludes JSON.
func requireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !acceptsJSON(c.GetHeader("Accept")) {
			c.AbortWithStatusJSON(http.StatusNotAcceptable, ErrorResponse{
				Code:    CodeNotAcceptable,
				Message: "responses are only available as application/json",
			})
			return
		}
		c.Next()
	}
}

func acceptsJSON(header string) bool {
	if strings.TrimSpace(header) == "" {
		return true
	}
	for _, part := range strings.Split(header, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if params["q"] == "0" {
			continue
		}
		switch mediaType {
		case "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}
