package handlers

import (
	"errors"
	"net/http"

	"mindcare/apperr"
	"mindcare/services"

	"github.com/gin-gonic/gin"
)

var userService = services.NewUserService()

// Register - регистрация пользователя
func Register(c *gin.Context) {
	var req struct {
		Nickname  string `json:"nickname" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		City      string `json:"city"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := userService.Register(c.Request.Context(), req.Nickname, req.Password, req.FirstName, req.LastName, req.City)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID})
}

// Login - вход, выдает токен
func Login(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, user, err := userService.Login(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		// Неверные учетные данные наружу уходят как 401, остальное по общей схеме
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.Forbidden {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": user.ID, "nickname": user.Nickname})
}

// Logout - выход, отзывает токены
func Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := userService.Logout(c.Request.Context(), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// UserGet - публичный профиль пользователя
func UserGet(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
