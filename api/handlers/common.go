package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"mindcare/apperr"

	"github.com/gin-gonic/gin"
)

// handleServiceError отображает класс ошибки сервиса в HTTP статус.
// Валидация - 400, не найдено - 404, запрещено - 403, конфликт - 409,
// все остальное - 500 без деталей хранилища.
func handleServiceError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.Validation:
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Message})
			return
		case apperr.NotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": appErr.Message})
			return
		case apperr.Forbidden:
			c.JSON(http.StatusForbidden, gin.H{"error": appErr.Message})
			return
		case apperr.Conflict:
			c.JSON(http.StatusConflict, gin.H{"error": appErr.Message})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// pathID парсит числовой идентификатор из path-параметра, 400 при мусоре
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt парсит числовой query-параметр с дефолтом
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

// queryInt64 парсит int64 query-параметр, 0 если параметр отсутствует
func queryInt64(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return val, true
}

// currentUserID достает user_id, положенный auth middleware
func currentUserID(c *gin.Context) (int64, bool) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}
