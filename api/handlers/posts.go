package handlers

import (
	"net/http"

	"mindcare/services"

	"github.com/gin-gonic/gin"
)

var postService = services.NewPostService()

// CreatePost - создание поста
func CreatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	post, err := postService.CreatePost(c.Request.Context(), userID, req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// UpdatePost - редактирование поста, только автор
func UpdatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	post, err := postService.UpdatePost(c.Request.Context(), postID, userID, req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// DeletePost - удаление поста, только автор
func DeletePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := postService.DeletePost(c.Request.Context(), postID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

// GetUserPosts - посты пользователя, постраничная пагинация
func GetUserPosts(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", services.DefaultPageSize)

	posts, err := postService.GetUserPosts(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetFeed - лента пользователя, постраничная пагинация
func GetFeed(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", services.DefaultPageSize)

	feed, err := postService.GetFeed(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// CreateComment - комментарий к посту
func CreateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	comment, err := postService.CreateComment(c.Request.Context(), postID, userID, req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// UpdateComment - редактирование комментария, только автор
func UpdateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	comment, err := postService.UpdateComment(c.Request.Context(), commentID, userID, req.Content)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment - удаление комментария, только автор
func DeleteComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := postService.DeleteComment(c.Request.Context(), commentID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

// GetPostComments - комментарии поста, постраничная пагинация
func GetPostComments(c *gin.Context) {
	postID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", services.DefaultPageSize)

	comments, err := postService.GetPostComments(c.Request.Context(), postID, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
