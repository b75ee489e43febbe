package handlers

import (
	"net/http"

	"mindcare/services"

	"github.com/gin-gonic/gin"
)

var wellbeingService = services.NewWellbeingService()

// CreateMoodEntry - отметка настроения
func CreateMoodEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Score int    `json:"score" binding:"required"`
		Note  string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	entry, err := wellbeingService.CreateMoodEntry(c.Request.Context(), userID, req.Score, req.Note)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// GetMoodEntries - свои отметки настроения, постранично
func GetMoodEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", services.DefaultPageSize)

	entries, err := wellbeingService.GetMoodEntries(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// DeleteMoodEntry - удаление своей отметки
func DeleteMoodEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := wellbeingService.DeleteMoodEntry(c.Request.Context(), entryID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mood entry deleted"})
}

// CreateJournalEntry - запись дневника
func CreateJournalEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	entry, err := wellbeingService.CreateJournalEntry(c.Request.Context(), userID, req.Title, req.Body)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// UpdateJournalEntry - редактирование своей записи
func UpdateJournalEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	entry, err := wellbeingService.UpdateJournalEntry(c.Request.Context(), entryID, userID, req.Title, req.Body)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// DeleteJournalEntry - удаление своей записи
func DeleteJournalEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := wellbeingService.DeleteJournalEntry(c.Request.Context(), entryID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "journal entry deleted"})
}

// GetJournalEntries - свои записи дневника, постранично
func GetJournalEntries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", services.DefaultPageSize)

	entries, err := wellbeingService.GetJournalEntries(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
