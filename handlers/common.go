package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"danceforchange/errs"
)

// sendSuccess writes the standard success envelope, merging extra
// payload keys at the top level.
func sendSuccess(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// sendError writes the standard failure envelope using the error
// taxonomy's status mapping. Unexpected errors are logged and hidden
// behind a generic message.
func sendError(c *gin.Context, err error, fallback string) {
	status := errs.HTTPStatus(err)
	message := err.Error()
	if status >= 500 {
		log.Printf("%s: %v", fallback, err)
		message = fallback
	}
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
