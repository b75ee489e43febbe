package handlers

import (
	"net/http"

	"mindcare/services"

	"github.com/gin-gonic/gin"
)

var friendService = services.NewFriendService()

// SendFriendRequest - обработчик отправки заявки в друзья
func SendFriendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		ReceiverID int64 `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	request, err := friendService.SendFriendRequest(c.Request.Context(), userID, req.ReceiverID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": request})
}

// AcceptFriendRequest - обработчик принятия заявки
func AcceptFriendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := friendService.AcceptFriendRequest(c.Request.Context(), requestID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request accepted"})
}

// RejectFriendRequest - обработчик отклонения заявки
func RejectFriendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := friendService.RejectFriendRequest(c.Request.Context(), requestID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request rejected"})
}

// CancelFriendRequest - обработчик отзыва своей заявки
func CancelFriendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := friendService.CancelFriendRequest(c.Request.Context(), requestID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request cancelled"})
}

// RemoveFriend - обработчик удаления из друзей
func RemoveFriend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friendID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := friendService.RemoveFriend(c.Request.Context(), userID, friendID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend removed"})
}

// GetFriendList - обработчик списка друзей
func GetFriendList(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friends, err := friendService.GetFriendList(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// GetPendingRequests - обработчик входящих заявок
func GetPendingRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requests, err := friendService.GetPendingRequests(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetSentRequests - обработчик исходящих заявок
func GetSentRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requests, err := friendService.GetSentRequests(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
