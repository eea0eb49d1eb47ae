package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Responses follow the ingestion API's envelope: every body carries a
// success flag, failures carry a single error string naming the bad
// field.

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
