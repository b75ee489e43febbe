package handlers

import (
	"net/http"
	"time"

	"mindcare/api/middleware"
	"mindcare/services"

	"github.com/gin-gonic/gin"
)

var messageService = services.NewDirectMessageService()

// SendDirectMessage - отправка личного сообщения пользователю из пути
func SendDirectMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	receiverID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req struct {
		Content         string `json:"content" binding:"required"`
		ContentType     string `json:"content_type"`
		MediaURL        string `json:"media_url"`
		ParentMessageID *int64 `json:"parent_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	start := time.Now()
	msg, err := messageService.SendDirectMessage(c.Request.Context(), userID, receiverID, req.Content, req.ContentType, req.MediaURL, req.ParentMessageID)
	middleware.RecordChatOperation("send_direct", time.Since(start), err)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID, "created_at": msg.CreatedAt})
}

// EditDirectMessage - редактирование своего сообщения
func EditDirectMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content     string `json:"content" binding:"required"`
		ContentType string `json:"content_type"`
		MediaURL    string `json:"media_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := messageService.EditDirectMessage(c.Request.Context(), messageID, userID, req.Content, req.ContentType, req.MediaURL)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// MarkMessageAsRead - отметка сообщения прочитанным, идемпотентно
func MarkMessageAsRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := messageService.MarkMessageAsRead(c.Request.Context(), messageID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

// GetChatHistory - история диалога с собеседником из пути.
// limit и before_message_id - курсорная пагинация.
func GetChatHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherUserID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	limit := queryInt(c, "limit", services.DefaultHistoryLimit)
	before, ok := queryInt64(c, "before_message_id")
	if !ok {
		return
	}

	start := time.Now()
	messages, err := messageService.GetChatHistory(c.Request.Context(), userID, otherUserID, limit, before)
	middleware.RecordChatOperation("chat_history", time.Since(start), err)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetUserChatList - список диалогов с последним сообщением и
// непрочитанными
func GetUserChatList(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chats, err := messageService.GetUserChatList(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetUnreadMessageCount - счетчики непрочитанного
func GetUnreadMessageCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	counts, err := messageService.GetUnreadMessageCount(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": counts.Total, "dialogs": counts.Dialogs})
}
