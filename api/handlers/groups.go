package handlers

import (
	"net/http"
	"time"

	"mindcare/api/middleware"
	"mindcare/services"

	"github.com/gin-gonic/gin"
)

var groupService = services.NewGroupService()

// CreateGroup - создание группы поддержки
func CreateGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	group, err := groupService.CreateGroup(c.Request.Context(), req.Name, req.Description, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// DeleteGroup - удаление группы, только администратор
func DeleteGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := groupService.DeleteGroup(c.Request.Context(), groupID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group deleted"})
}

// JoinGroup - вступление в группу
func JoinGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := groupService.JoinGroup(c.Request.Context(), groupID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined group"})
}

// LeaveGroup - выход из группы
func LeaveGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := groupService.LeaveGroup(c.Request.Context(), groupID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left group"})
}

// ChangeGroupAdmin - смена прав администратора участника
func ChangeGroupAdmin(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserID  int64 `json:"user_id" binding:"required"`
		IsAdmin *bool `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := groupService.ChangeGroupAdmin(c.Request.Context(), groupID, userID, req.UserID, *req.IsAdmin); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "admin rights updated"})
}

// SendGroupMessage - сообщение в группу, только участники
func SendGroupMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
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
	msg, err := groupService.SendGroupMessage(c.Request.Context(), groupID, userID, req.Content, req.ContentType, req.MediaURL, req.ParentMessageID)
	middleware.RecordChatOperation("send_group", time.Since(start), err)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID, "created_at": msg.CreatedAt})
}

// EditGroupMessage - редактирование своего группового сообщения
func EditGroupMessage(c *gin.Context) {
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
	msg, err := groupService.EditGroupMessage(c.Request.Context(), messageID, userID, req.Content, req.ContentType, req.MediaURL)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// GetGroupMessages - сообщения группы с курсорной пагинацией,
// членство перепроверяется на каждый вызов
func GetGroupMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit := queryInt(c, "limit", services.DefaultHistoryLimit)
	before, ok := queryInt64(c, "before_message_id")
	if !ok {
		return
	}

	start := time.Now()
	messages, err := groupService.GetGroupMessages(c.Request.Context(), groupID, userID, limit, before)
	middleware.RecordChatOperation("group_history", time.Since(start), err)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MarkGroupRead - продвижение прогресса чтения группы
func MarkGroupRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UpToMessageID int64 `json:"up_to_message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := groupService.MarkGroupRead(c.Request.Context(), groupID, userID, req.UpToMessageID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "read state updated"})
}

// SendGroupInvite - приглашение пользователя в группу
func SendGroupInvite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		InviteeID int64 `json:"invitee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	invite, err := groupService.SendGroupInvite(c.Request.Context(), groupID, userID, req.InviteeID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invite": invite})
}

// AcceptGroupInvite - принятие приглашения
func AcceptGroupInvite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	inviteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := groupService.AcceptGroupInvite(c.Request.Context(), inviteID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invite accepted"})
}

// DeclineGroupInvite - отклонение приглашения
func DeclineGroupInvite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	inviteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := groupService.DeclineGroupInvite(c.Request.Context(), inviteID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invite declined"})
}

// GetPendingInvites - входящие приглашения
func GetPendingInvites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	invites, err := groupService.GetPendingInvites(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// ListGroups - группы пользователя с производными полями
func ListGroups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groups, err := groupService.ListGroups(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroupMembers - участники группы
func GetGroupMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := groupService.GetGroupMembers(c.Request.Context(), groupID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
