package services

import (
	"context"
	"testing"

	"mindcare/apperr"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndGetChatHistory(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	content := gofakeit.Sentence(5)
	msg, err := ms.SendDirectMessage(ctx, alice.ID, bob.ID, content, "text", "", nil)
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())

	history, err := ms.GetChatHistory(ctx, alice.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, content, history[0].Content)
	assert.False(t, history[0].IsRead)
	assert.False(t, history[0].IsEdited)
}

func TestSendDirectMessageValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)

	_, err := ms.SendDirectMessage(ctx, alice.ID, 0, "hi", "text", "", nil)
	assert.Equal(t, apperr.Validation, errKind(t, err))

	_, err = ms.SendDirectMessage(ctx, alice.ID, alice.ID, "hi", "text", "", nil)
	assert.Equal(t, apperr.Validation, errKind(t, err))

	bob := createTestUser(t)
	_, err = ms.SendDirectMessage(ctx, alice.ID, bob.ID, "", "text", "", nil)
	assert.Equal(t, apperr.Validation, errKind(t, err))

	// Несуществующий получатель
	_, err = ms.SendDirectMessage(ctx, alice.ID, 99999, "hi", "text", "", nil)
	assert.Equal(t, apperr.NotFound, errKind(t, err))
}

func TestReplyThreading(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)
	carol := createTestUser(t)

	parent, err := ms.SendDirectMessage(ctx, alice.ID, bob.ID, "original", "text", "", nil)
	require.NoError(t, err)

	reply, err := ms.SendDirectMessage(ctx, bob.ID, alice.ID, "reply", "text", "", &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentMessageID)
	assert.Equal(t, parent.ID, *reply.ParentMessageID)

	// Ответ на сообщение из чужого диалога запрещен
	_, err = ms.SendDirectMessage(ctx, carol.ID, alice.ID, "hijack", "text", "", &parent.ID)
	assert.Equal(t, apperr.Validation, errKind(t, err))
}

func TestEditDirectMessage(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	msg, err := ms.SendDirectMessage(ctx, alice.ID, bob.ID, "before", "text", "", nil)
	require.NoError(t, err)

	// Редактировать может только автор
	_, err = ms.EditDirectMessage(ctx, msg.ID, bob.ID, "hacked", "", "")
	assert.Equal(t, apperr.Forbidden, errKind(t, err))

	edited, err := ms.EditDirectMessage(ctx, msg.ID, alice.ID, "after", "", "")
	require.NoError(t, err)
	assert.Equal(t, msg.ID, edited.ID)
	assert.Equal(t, "after", edited.Content)
	assert.True(t, edited.IsEdited)

	_, err = ms.EditDirectMessage(ctx, 99999, alice.ID, "after", "", "")
	assert.Equal(t, apperr.NotFound, errKind(t, err))
}

func TestMarkMessageAsReadIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	msg, err := ms.SendDirectMessage(ctx, alice.ID, bob.ID, "unread", "text", "", nil)
	require.NoError(t, err)

	// Отметить прочитанным может только получатель
	err = ms.MarkMessageAsRead(ctx, msg.ID, alice.ID)
	assert.Equal(t, apperr.Forbidden, errKind(t, err))

	require.NoError(t, ms.MarkMessageAsRead(ctx, msg.ID, bob.ID))

	history, err := ms.GetChatHistory(ctx, alice.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsRead)
	firstUpdatedAt := history[0].UpdatedAt

	// Повторная отметка - не ошибка и не трогает временные метки
	require.NoError(t, ms.MarkMessageAsRead(ctx, msg.ID, bob.ID))
	history, err = ms.GetChatHistory(ctx, alice.ID, bob.ID, 50, 0)
	require.NoError(t, err)
	assert.True(t, history[0].IsRead)
	assert.Equal(t, firstUpdatedAt, history[0].UpdatedAt)
}

func TestChatHistoryCursor(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	var ids []int64
	for i := 0; i < 5; i++ {
		msg, err := ms.SendDirectMessage(ctx, alice.ID, bob.ID, gofakeit.Sentence(3), "text", "", nil)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	// Первая страница: новые первыми
	page1, err := ms.GetChatHistory(ctx, alice.ID, bob.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, ids[4], page1[0].ID)
	assert.Equal(t, ids[3], page1[1].ID)

	// Курсор эксклюзивный: все id строго меньше
	cursor := page1[1].ID
	page2, err := ms.GetChatHistory(ctx, alice.ID, bob.ID, 2, cursor)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	for _, m := range page2 {
		assert.Less(t, m.ID, cursor)
	}

	// Вставка нового сообщения не сдвигает старые страницы
	_, err = ms.SendDirectMessage(ctx, bob.ID, alice.ID, "concurrent", "text", "", nil)
	require.NoError(t, err)
	page2Again, err := ms.GetChatHistory(ctx, alice.ID, bob.ID, 2, cursor)
	require.NoError(t, err)
	assert.Equal(t, page2, page2Again)
}

func TestUnreadCountsConsistency(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)
	carol := createTestUser(t)

	// Три непрочитанных от Боба, одно от Кэрол
	for i := 0; i < 3; i++ {
		_, err := ms.SendDirectMessage(ctx, bob.ID, alice.ID, gofakeit.Sentence(3), "text", "", nil)
		require.NoError(t, err)
	}
	lastFromCarol, err := ms.SendDirectMessage(ctx, carol.ID, alice.ID, "hello", "text", "", nil)
	require.NoError(t, err)

	counts, err := ms.GetUnreadMessageCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Total)
	assert.Equal(t, int64(2), counts.Dialogs)
	assert.LessOrEqual(t, counts.Dialogs, counts.Total)

	require.NoError(t, ms.MarkMessageAsRead(ctx, lastFromCarol.ID, alice.ID))
	counts, err = ms.GetUnreadMessageCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(1), counts.Dialogs)
}

func TestGetUserChatList(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	ms := NewDirectMessageService()

	alice := createTestUser(t)
	bob := createTestUser(t)
	carol := createTestUser(t)

	_, err := ms.SendDirectMessage(ctx, bob.ID, alice.ID, "from bob", "text", "", nil)
	require.NoError(t, err)
	_, err = ms.SendDirectMessage(ctx, alice.ID, bob.ID, "to bob", "text", "", nil)
	require.NoError(t, err)
	_, err = ms.SendDirectMessage(ctx, carol.ID, alice.ID, "from carol", "text", "", nil)
	require.NoError(t, err)

	chats, err := ms.GetUserChatList(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	// Последняя активность первой
	assert.Equal(t, carol.ID, chats[0].PartnerID)
	assert.Equal(t, "from carol", chats[0].LastMessage)
	assert.Equal(t, int64(1), chats[0].UnreadCount)

	assert.Equal(t, bob.ID, chats[1].PartnerID)
	assert.Equal(t, "to bob", chats[1].LastMessage)
	assert.Equal(t, int64(1), chats[1].UnreadCount)
	assert.Equal(t, bob.FirstName+" "+bob.LastName, chats[1].PartnerName)
}
