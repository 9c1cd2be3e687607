package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
	"github.com/noah-isme/parts-inventory-api/pkg/response"
)

// bindJSON decodes the body into dst and writes an InvalidOperation response on failure.
func bindJSON(c *gin.Context, dst interface{}, action string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.InvalidOperation(action, "invalid payload: "+err.Error()))
		return false
	}
	return true
}

// intParam parses a positive integer path parameter.
func intParam(c *gin.Context, name, action string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil || value <= 0 {
		response.Error(c, appErrors.InvalidOperation(action, name+" must be a positive integer"))
		return 0, false
	}
	return value, true
}
