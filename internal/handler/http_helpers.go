package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseYearParam(c *gin.Context) (int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		return 0, fmt.Errorf("invalid year")
	}
	return year, nil
}

// parseMonthParam accepts the lowercase three-letter month abbreviation used
// by archive paths (jan, feb, ...).
func parseMonthParam(c *gin.Context) (time.Month, error) {
	raw := strings.ToLower(strings.TrimSpace(c.Param("month")))
	if len(raw) != 3 {
		return 0, fmt.Errorf("invalid month")
	}
	parsed, err := time.Parse("Jan", strings.ToUpper(raw[:1])+raw[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid month")
	}
	return parsed.Month(), nil
}

func parseDayParam(c *gin.Context) (int, error) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day")
	}
	return day, nil
}
