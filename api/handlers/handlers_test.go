package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mindcare/api/routes"
	"mindcare/db"
	"mindcare/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRouter поднимает SQLite в памяти и собирает полный роутер
// с настоящим auth middleware
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db.ORM = database

	router := gin.New()
	routes.PublicApi(router)
	return router
}

// doJSON выполняет запрос с JSON-телом и Bearer токеном
func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerAndLogin создает пользователя через API и возвращает токен и id
func registerAndLogin(t *testing.T, router *gin.Engine) (string, int64) {
	t.Helper()
	nickname := fmt.Sprintf("%s_%d", gofakeit.Username(), time.Now().UnixNano())
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"nickname":   nickname,
		"password":   "secret123",
		"first_name": gofakeit.FirstName(),
		"last_name":  gofakeit.LastName(),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"nickname": nickname,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	userID := int64(body["user_id"].(float64))
	return token, userID
}

func TestAuthEndpoints(t *testing.T) {
	router := setupRouter(t)

	nickname := fmt.Sprintf("%s_%d", gofakeit.Username(), time.Now().UnixNano())
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"nickname": nickname,
		"password": "secret123",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Дубликат никнейма
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"nickname": nickname,
		"password": "other456",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Тело без обязательных полей
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{"nickname": nickname})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Неверный пароль
	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"nickname": nickname,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Приватные маршруты без токена закрыты
	w = doJSON(t, router, http.MethodGet, "/api/v1/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/v1/chats", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginInternalErrorNotMaskedAsUnauthorized(t *testing.T) {
	router := setupRouter(t)

	nickname := fmt.Sprintf("%s_%d", gofakeit.Username(), time.Now().UnixNano())
	w := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"nickname": nickname,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Сбой хранилища не должен выглядеть как неверный пароль
	require.NoError(t, db.ORM.Migrator().DropTable(&models.User{}))

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"nickname": nickname,
		"password": "secret123",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	router := setupRouter(t)
	token, _ := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/chats", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/chats", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDirectMessageEndpoints(t *testing.T) {
	router := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router)
	bobToken, bobID := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/dialogs/%d/messages", bobID), aliceToken, gin.H{
		"content": "hello bob",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	messageID := int64(body["message_id"].(float64))
	require.NotZero(t, messageID)

	// Мусор вместо id в пути
	w = doJSON(t, router, http.MethodPost, "/api/v1/dialogs/abc/messages", aliceToken, gin.H{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Пустое тело
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/dialogs/%d/messages", bobID), aliceToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Несуществующий получатель
	w = doJSON(t, router, http.MethodPost, "/api/v1/dialogs/99999/messages", aliceToken, gin.H{"content": "void"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// История видна обеим сторонам
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/dialogs/%d/messages", bobID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Невалидный курсор
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/dialogs/%d/messages?before_message_id=junk", bobID), aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Отметить прочитанным может только получатель
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", messageID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/messages/%d/read", messageID), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Чужое сообщение не редактируется
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/messages/%d", messageID), bobToken, gin.H{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/chats/unread", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decodeBody(t, w)
	assert.Equal(t, float64(0), counts["total"])
}

func TestFriendEndpoints(t *testing.T) {
	router := setupRouter(t)
	aliceToken, aliceID := registerAndLogin(t, router)
	bobToken, bobID := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/friends/requests", aliceToken, gin.H{"receiver_id": bobID})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	request := body["request"].(map[string]interface{})
	requestID := int64(request["id"].(float64))

	// Дубликат заявки
	w = doJSON(t, router, http.MethodPost, "/api/v1/friends/requests", aliceToken, gin.H{"receiver_id": bobID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Принять может только адресат
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/friends/requests/%d/accept", requestID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/friends/requests/%d/accept", requestID), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Повторная обработка терминальной заявки
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/friends/requests/%d/accept", requestID), bobToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/friends", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	friends := decodeBody(t, w)["friends"].([]interface{})
	require.Len(t, friends, 1)
	assert.Equal(t, float64(aliceID), friends[0].(map[string]interface{})["id"])

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/friends/%d", bobID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/friends/%d", bobID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupEndpoints(t *testing.T) {
	router := setupRouter(t)
	aliceToken, aliceID := registerAndLogin(t, router)
	bobToken, _ := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/groups", aliceToken, gin.H{
		"name":        "Anxiety support",
		"description": "weekly check-ins",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	group := decodeBody(t, w)["group"].(map[string]interface{})
	groupID := int64(group["id"].(float64))

	// Не участник не видит сообщения
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/messages", groupID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/join", groupID), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/join", groupID), bobToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/messages", groupID), bobToken, gin.H{
		"content": "glad to be here",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	messageID := int64(decodeBody(t, w)["message_id"].(float64))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/read", groupID), aliceToken, gin.H{
		"up_to_message_id": messageID,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Удалить группу может только администратор
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d", groupID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Группа не может остаться без администраторов
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/admin", groupID), aliceToken, gin.H{
		"user_id":  aliceID,
		"is_admin": false,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/groups", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decodeBody(t, w)["groups"].([]interface{})
	assert.Len(t, groups, 1)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d", groupID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/groups/%d", groupID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupInviteEndpoints(t *testing.T) {
	router := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router)
	bobToken, bobID := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/groups", aliceToken, gin.H{"name": "Mindfulness"})
	require.Equal(t, http.StatusCreated, w.Code)
	group := decodeBody(t, w)["group"].(map[string]interface{})
	groupID := int64(group["id"].(float64))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/invites", groupID), aliceToken, gin.H{
		"invitee_id": bobID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	invite := decodeBody(t, w)["invite"].(map[string]interface{})
	inviteID := int64(invite["id"].(float64))

	w = doJSON(t, router, http.MethodGet, "/api/v1/invites", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	invites := decodeBody(t, w)["invites"].([]interface{})
	require.Len(t, invites, 1)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/invites/%d/accept", inviteID), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d/members", groupID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decodeBody(t, w)["members"].([]interface{})
	assert.Len(t, members, 2)

	// Терминальное приглашение
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/invites/%d/accept", inviteID), bobToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPostAndFeedEndpoints(t *testing.T) {
	router := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router)
	bobToken, _ := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/posts", aliceToken, gin.H{"content": "today was hard but I managed"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decodeBody(t, w)["post"].(map[string]interface{})
	postID := int64(post["id"].(float64))

	// Чужой пост не редактируется
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", postID), bobToken, gin.H{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), bobToken, gin.H{"content": "proud of you"})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Комментарий к несуществующему посту
	w = doJSON(t, router, http.MethodPost, "/api/v1/posts/99999/comments", bobToken, gin.H{"content": "lost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments?page=1&page_size=10", postID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	comments := decodeBody(t, w)["comments"].([]interface{})
	assert.Len(t, comments, 1)

	// Своя лента содержит свой пост
	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decodeBody(t, w)
	posts := feed["posts"].([]interface{})
	require.Len(t, posts, 1)
	assert.Equal(t, float64(postID), posts[0].(map[string]interface{})["id"])

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", postID), aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", postID), aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWellbeingEndpoints(t *testing.T) {
	router := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router)
	bobToken, _ := registerAndLogin(t, router)

	// Оценка вне шкалы
	w := doJSON(t, router, http.MethodPost, "/api/v1/moods", aliceToken, gin.H{"score": 15})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/moods", aliceToken, gin.H{"score": 6, "note": "stable"})
	require.Equal(t, http.StatusCreated, w.Code)
	mood := decodeBody(t, w)["entry"].(map[string]interface{})
	moodID := int64(mood["id"].(float64))

	// Чужая отметка не удаляется
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/moods/%d", moodID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/journal", aliceToken, gin.H{
		"title": "Tuesday",
		"body":  "went for a walk",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decodeBody(t, w)["entry"].(map[string]interface{})
	entryID := int64(entry["id"].(float64))

	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/journal/%d", entryID), aliceToken, gin.H{
		"title": "Tuesday",
		"body":  "went for a long walk",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/journal", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeBody(t, w)["entries"].([]interface{})
	assert.Len(t, entries, 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/journal", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["entries"])
}
