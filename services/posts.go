package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"mindcare/apperr"
	"mindcare/db"
	"mindcare/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	FEED_CACHE_TTL  = 24 * time.Hour // TTL кеша ленты
	MAX_FEED_SIZE   = 1000           // Максимум постов в кешированной ленте
	FEED_KEY_PREFIX = "user_feed:"   // Префикс ключей ленты в Redis
	POST_KEY_PREFIX = "post:"        // Префикс кеша постов

	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PostService - посты, комментарии и лента. Пагинация здесь
// постраничная (page/page_size, страницы с единицы) - это внешне
// наблюдаемый контракт, курсоры сюда не переносятся.
type PostService struct{}

func NewPostService() *PostService {
	return &PostService{}
}

// normalizePage приводит параметры пагинации к допустимым значениям
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// CreatePost создает пост и запускает обновление лент друзей
func (ps *PostService) CreatePost(ctx context.Context, userID int64, content string) (*models.Post, error) {
	if userID <= 0 {
		return nil, apperr.Validationf("user id is required")
	}
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}

	post := &models.Post{
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(post).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to create post")
	}

	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueFeedUpdate(context.Background(), userID, *post, "create")
	} else {
		// Fallback - обновляем ленты синхронно, если очередь не инициализирована
		go ps.fanOutPost(context.Background(), userID, post)
	}

	return post, nil
}

// UpdatePost меняет содержимое поста, только автор
func (ps *PostService) UpdatePost(ctx context.Context, postID, userID int64, content string) (*models.Post, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}

	var post models.Post
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&post, postID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("post not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load post")
		}
		if post.UserID != userID {
			return apperr.Forbiddenf("only the author can update a post")
		}
		post.Content = content
		post.UpdatedAt = time.Now()
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, err
	}

	// Кешированная копия устарела
	ps.invalidateCachedPost(ctx, post.ID)
	return &post, nil
}

// DeletePost удаляет пост, только автор
func (ps *PostService) DeletePost(ctx context.Context, postID, userID int64) error {
	var post models.Post
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&post, postID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("post not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load post")
		}
		if post.UserID != userID {
			return apperr.Forbiddenf("only the author can delete a post")
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to delete comments")
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return err
	}

	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueFeedUpdate(context.Background(), userID, post, "delete")
	} else {
		go ps.removePostFromAllFeeds(context.Background(), userID, post.ID)
	}
	return nil
}

// GetUserPosts возвращает посты пользователя постранично
func (ps *PostService) GetUserPosts(ctx context.Context, userID int64, page, pageSize int) ([]models.Post, error) {
	page, pageSize = normalizePage(page, pageSize)
	var posts []models.Post
	err := db.GetReadOnlyDB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load posts")
	}
	return posts, nil
}

// CreateComment добавляет комментарий к существующему посту
func (ps *PostService) CreateComment(ctx context.Context, postID, userID int64, content string) (*models.Comment, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}

	comment := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var postCount int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check post")
		}
		if postCount == 0 {
			return apperr.NotFoundf("post not found")
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment меняет комментарий, только автор
func (ps *PostService) UpdateComment(ctx context.Context, commentID, userID int64, content string) (*models.Comment, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}

	var comment models.Comment
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&comment, commentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("comment not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load comment")
		}
		if comment.UserID != userID {
			return apperr.Forbiddenf("only the author can update a comment")
		}
		comment.Content = content
		comment.UpdatedAt = time.Now()
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment удаляет комментарий, только автор
func (ps *PostService) DeleteComment(ctx context.Context, commentID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		err := tx.First(&comment, commentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("comment not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load comment")
		}
		if comment.UserID != userID {
			return apperr.Forbiddenf("only the author can delete a comment")
		}
		return tx.Delete(&comment).Error
	})
}

// GetPostComments возвращает комментарии поста постранично, старые первыми
func (ps *PostService) GetPostComments(ctx context.Context, postID int64, page, pageSize int) ([]models.Comment, error) {
	page, pageSize = normalizePage(page, pageSize)

	var postCount int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&postCount).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to check post")
	}
	if postCount == 0 {
		return nil, apperr.NotFoundf("post not found")
	}

	var comments []models.Comment
	err := db.GetReadOnlyDB(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&comments).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load comments")
	}
	return comments, nil
}

// GetFeed возвращает страницу ленты: свои посты и посты друзей,
// новые первыми. Сначала пробуем Redis, затем БД.
func (ps *PostService) GetFeed(ctx context.Context, userID int64, page, pageSize int) (*models.FeedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	feedPosts, err := ps.getFeedFromCache(ctx, feedKey, page, pageSize)
	if err == nil && len(feedPosts) > 0 {
		return &models.FeedResponse{
			Posts:    feedPosts,
			Page:     page,
			PageSize: pageSize,
			HasMore:  len(feedPosts) == pageSize,
		}, nil
	}

	feedPosts, err = ps.buildFeedFromDB(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}

	if page == 1 {
		go ps.cacheFeed(context.Background(), feedKey, feedPosts)
	}

	return &models.FeedResponse{
		Posts:    feedPosts,
		Page:     page,
		PageSize: pageSize,
		HasMore:  len(feedPosts) == pageSize,
	}, nil
}

// buildFeedFromDB строит страницу ленты из базы
func (ps *PostService) buildFeedFromDB(ctx context.Context, userID int64, page, pageSize int) ([]models.FeedPost, error) {
	var friendIDs []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.Friend{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &friendIDs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load friends")
	}
	friendIDs = append(friendIDs, userID)

	var feedPosts []models.FeedPost
	err = db.GetReadOnlyDB(ctx).
		Table("posts p").
		Select("p.id, p.user_id, u.first_name || ' ' || u.last_name AS user_name, p.content, p.created_at").
		Joins("JOIN users u ON p.user_id = u.id").
		Where("p.user_id IN ?", friendIDs).
		Order("p.created_at DESC, p.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&feedPosts).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load feed")
	}
	return feedPosts, nil
}

// getFeedFromCache читает страницу ленты из Redis sorted set
func (ps *PostService) getFeedFromCache(ctx context.Context, feedKey string, page, pageSize int) ([]models.FeedPost, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis not available")
	}

	start := int64((page - 1) * pageSize)
	stop := start + int64(pageSize) - 1

	postIDs, err := RedisClient.ZRevRange(ctx, feedKey, start, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(postIDs) == 0 {
		return []models.FeedPost{}, nil
	}

	pipe := RedisClient.Pipeline()
	cmds := make([]*redis.StringCmd, len(postIDs))
	for i, postID := range postIDs {
		cmds[i] = pipe.Get(ctx, POST_KEY_PREFIX+postID)
	}
	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, err
	}

	var feedPosts []models.FeedPost
	for _, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}
		var feedPost models.FeedPost
		if err := json.Unmarshal([]byte(val), &feedPost); err == nil {
			feedPosts = append(feedPosts, feedPost)
		}
	}
	return feedPosts, nil
}

// cacheFeed кеширует ленту в Redis
func (ps *PostService) cacheFeed(ctx context.Context, feedKey string, posts []models.FeedPost) {
	if len(posts) == 0 || RedisClient == nil {
		return
	}

	pipe := RedisClient.Pipeline()
	pipe.Del(ctx, feedKey)

	for _, post := range posts {
		score := float64(post.CreatedAt.Unix())
		pipe.ZAdd(ctx, feedKey, &redis.Z{
			Score:  score,
			Member: strconv.FormatInt(post.ID, 10),
		})
		postData, _ := json.Marshal(post)
		pipe.Set(ctx, POST_KEY_PREFIX+strconv.FormatInt(post.ID, 10), postData, FEED_CACHE_TTL)
	}

	pipe.ZRemRangeByRank(ctx, feedKey, 0, -MAX_FEED_SIZE-1)
	pipe.Expire(ctx, feedKey, FEED_CACHE_TTL)
	pipe.Exec(ctx)
}

// fanOutPost добавляет новый пост в ленты автора и его друзей
func (ps *PostService) fanOutPost(ctx context.Context, userID int64, post *models.Post) {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, userID).Error; err != nil {
		log.Printf("fanOutPost: failed to load author %d: %v", userID, err)
		return
	}

	feedPost := models.FeedPost{
		ID:        post.ID,
		UserID:    post.UserID,
		UserName:  user.FirstName + " " + user.LastName,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
	}

	var friendIDs []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.Friend{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &friendIDs).Error
	if err != nil {
		log.Printf("fanOutPost: failed to load friends of %d: %v", userID, err)
		return
	}

	for _, friendID := range friendIDs {
		ps.addPostToUserFeed(ctx, friendID, feedPost)
	}
	ps.addPostToUserFeed(ctx, userID, feedPost)
}

// addPostToUserFeed добавляет пост в кешированную ленту пользователя
func (ps *PostService) addPostToUserFeed(ctx context.Context, userID int64, post models.FeedPost) {
	if RedisClient == nil {
		return
	}

	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	postData, err := json.Marshal(post)
	if err != nil {
		return
	}

	pipe := RedisClient.Pipeline()
	pipe.ZAdd(ctx, feedKey, &redis.Z{
		Score:  float64(post.CreatedAt.Unix()),
		Member: strconv.FormatInt(post.ID, 10),
	})
	pipe.Set(ctx, POST_KEY_PREFIX+strconv.FormatInt(post.ID, 10), postData, FEED_CACHE_TTL)
	pipe.ZRemRangeByRank(ctx, feedKey, 0, -MAX_FEED_SIZE-1)
	pipe.Expire(ctx, feedKey, FEED_CACHE_TTL)
	pipe.Exec(ctx)
}

// removePostFromAllFeeds убирает пост из лент автора и друзей
func (ps *PostService) removePostFromAllFeeds(ctx context.Context, userID int64, postID int64) {
	if RedisClient == nil {
		return
	}

	var friendIDs []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.Friend{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &friendIDs).Error
	if err != nil {
		return
	}

	for _, friendID := range friendIDs {
		ps.removePostFromUserFeed(ctx, friendID, postID)
	}
	ps.removePostFromUserFeed(ctx, userID, postID)
}

// removePostFromUserFeed убирает пост из ленты одного пользователя
func (ps *PostService) removePostFromUserFeed(ctx context.Context, userID int64, postID int64) {
	if RedisClient == nil {
		return
	}
	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	pipe := RedisClient.Pipeline()
	pipe.ZRem(ctx, feedKey, strconv.FormatInt(postID, 10))
	pipe.Del(ctx, POST_KEY_PREFIX+strconv.FormatInt(postID, 10))
	pipe.Exec(ctx)
}

// invalidateCachedPost убирает устаревшую копию поста из кеша
func (ps *PostService) invalidateCachedPost(ctx context.Context, postID int64) {
	if RedisClient == nil {
		return
	}
	RedisClient.Del(ctx, POST_KEY_PREFIX+strconv.FormatInt(postID, 10))
}
