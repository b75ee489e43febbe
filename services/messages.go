package services

import (
	"context"
	"errors"
	"time"

	"mindcare/apperr"
	"mindcare/db"
	"mindcare/models"

	"gorm.io/gorm"
)

const DefaultHistoryLimit = 50

// DirectMessageService - сервис личных сообщений: отправка, редактирование,
// отметка о прочтении, история с курсорной пагинацией, список диалогов и
// счетчики непрочитанного
type DirectMessageService struct{}

func NewDirectMessageService() *DirectMessageService {
	return &DirectMessageService{}
}

// SendDirectMessage создает сообщение. Получатель проверяется в той же
// транзакции, что и вставка; родительское сообщение (ответ) обязано
// принадлежать этому же диалогу.
func (ms *DirectMessageService) SendDirectMessage(ctx context.Context, senderID, receiverID int64, content, contentType, mediaURL string, parentMessageID *int64) (*models.DirectMessage, error) {
	if senderID <= 0 || receiverID <= 0 {
		return nil, apperr.Validationf("sender and receiver are required")
	}
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}
	if senderID == receiverID {
		return nil, apperr.Validationf("cannot send a message to yourself")
	}
	if contentType == "" {
		contentType = "text"
	}

	msg := &models.DirectMessage{
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Content:         content,
		ContentType:     contentType,
		MediaURL:        mediaURL,
		ParentMessageID: parentMessageID,
		IsRead:          false,
		UpdatedAt:       time.Now(),
	}

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var receiverCount int64
		if err := tx.Model(&models.User{}).Where("id = ?", receiverID).Count(&receiverCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check receiver")
		}
		if receiverCount == 0 {
			return apperr.NotFoundf("receiver not found")
		}

		if parentMessageID != nil {
			var parent models.DirectMessage
			err := tx.Where(
				"id = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
				*parentMessageID, senderID, receiverID, receiverID, senderID,
			).First(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validationf("parent message does not belong to this conversation")
			}
			if err != nil {
				return apperr.Wrap(apperr.Internal, err, "failed to check parent message")
			}
		}

		if err := tx.Create(msg).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to send message")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ms.notify(ChatEvent{
		Event:     "direct_message",
		UserID:    receiverID,
		MessageID: msg.ID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: msg.CreatedAt,
	})

	return msg, nil
}

// EditDirectMessage меняет содержимое сообщения. Разрешено только
// автору, идентификатор и факт прочтения не меняются.
func (ms *DirectMessageService) EditDirectMessage(ctx context.Context, messageID, senderID int64, content, contentType, mediaURL string) (*models.DirectMessage, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}

	var msg models.DirectMessage
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&msg, messageID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("message not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load message")
		}
		if msg.SenderID != senderID {
			return apperr.Forbiddenf("only the sender can edit a message")
		}

		msg.Content = content
		if contentType != "" {
			msg.ContentType = contentType
		}
		if mediaURL != "" {
			msg.MediaURL = mediaURL
		}
		msg.IsEdited = true
		msg.UpdatedAt = time.Now()

		if err := tx.Save(&msg).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to edit message")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkMessageAsRead отмечает сообщение прочитанным. Операция
// идемпотентна: повторный вызов не ошибка и не трогает временные метки.
func (ms *DirectMessageService) MarkMessageAsRead(ctx context.Context, messageID, receiverID int64) error {
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var msg models.DirectMessage
		err := tx.First(&msg, messageID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("message not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load message")
		}
		if msg.ReceiverID != receiverID {
			return apperr.Forbiddenf("only the receiver can mark a message as read")
		}
		if msg.IsRead {
			// Уже прочитано
			return nil
		}
		if err := tx.Model(&msg).UpdateColumn("is_read", true).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to mark message as read")
		}
		return nil
	})
	if err != nil {
		return err
	}

	InvalidateUnreadCounts(ctx, receiverID)
	return nil
}

// GetChatHistory возвращает сообщения между двумя пользователями,
// новые первыми. beforeMessageID - эксклюзивный курсор: в выборку
// попадают только сообщения с id строго меньше, поэтому параллельные
// вставки не сдвигают уже выданные страницы.
func (ms *DirectMessageService) GetChatHistory(ctx context.Context, user1, user2 int64, limit int, beforeMessageID int64) ([]models.DirectMessage, error) {
	if user1 <= 0 || user2 <= 0 {
		return nil, apperr.Validationf("both user ids are required")
	}
	if limit <= 0 || limit > 200 {
		limit = DefaultHistoryLimit
	}

	query := db.GetReadOnlyDB(ctx).
		Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			user1, user2, user2, user1,
		).
		Order("id DESC").
		Limit(limit)

	if beforeMessageID > 0 {
		query = query.Where("id < ?", beforeMessageID)
	}

	var messages []models.DirectMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load chat history")
	}
	return messages, nil
}

// GetUserChatList возвращает по одной строке на собеседника: последнее
// сообщение (старшинство по id) и число непрочитанных от него
func (ms *DirectMessageService) GetUserChatList(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	if userID <= 0 {
		return nil, apperr.Validationf("user id is required")
	}

	var summaries []models.ChatSummary
	err := db.GetReadOnlyDB(ctx).Raw(`
		SELECT m.id AS last_message_id,
		       m.content AS last_message,
		       m.sender_id AS last_sender_id,
		       m.created_at AS last_sent_at,
		       CASE WHEN m.sender_id = ? THEN m.receiver_id ELSE m.sender_id END AS partner_id
		FROM direct_messages m
		JOIN (
			SELECT MAX(id) AS id
			FROM direct_messages
			WHERE sender_id = ? OR receiver_id = ?
			GROUP BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
		) latest ON latest.id = m.id
		ORDER BY m.id DESC`,
		userID, userID, userID, userID,
	).Scan(&summaries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load chat list")
	}
	if len(summaries) == 0 {
		return []models.ChatSummary{}, nil
	}

	// Непрочитанные по отправителям
	type unreadRow struct {
		SenderID int64
		Cnt      int64
	}
	var unread []unreadRow
	err = db.GetReadOnlyDB(ctx).Model(&models.DirectMessage{}).
		Select("sender_id, COUNT(*) AS cnt").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&unread).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load unread counts")
	}
	unreadByPartner := make(map[int64]int64, len(unread))
	for _, row := range unread {
		unreadByPartner[row.SenderID] = row.Cnt
	}

	// Имена собеседников
	partnerIDs := make([]int64, 0, len(summaries))
	for _, s := range summaries {
		partnerIDs = append(partnerIDs, s.PartnerID)
	}
	var partners []models.User
	if err := db.GetReadOnlyDB(ctx).Where("id IN ?", partnerIDs).Find(&partners).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load partners")
	}
	nameByID := make(map[int64]string, len(partners))
	for _, p := range partners {
		nameByID[p.ID] = p.FirstName + " " + p.LastName
	}

	for i := range summaries {
		summaries[i].UnreadCount = unreadByPartner[summaries[i].PartnerID]
		summaries[i].PartnerName = nameByID[summaries[i].PartnerID]
	}
	return summaries, nil
}

// GetUnreadMessageCount возвращает общее число непрочитанных и число
// диалогов с непрочитанными. Обе величины считаются одним запросом,
// поэтому dialogs <= total в любой момент времени.
func (ms *DirectMessageService) GetUnreadMessageCount(ctx context.Context, userID int64) (*models.UnreadCounts, error) {
	if userID <= 0 {
		return nil, apperr.Validationf("user id is required")
	}

	if cached, err := GetCachedUnreadCounts(ctx, userID); err == nil {
		return cached, nil
	}

	var counts models.UnreadCounts
	err := db.GetReadOnlyDB(ctx).Raw(`
		SELECT COUNT(*) AS total, COUNT(DISTINCT sender_id) AS dialogs
		FROM direct_messages
		WHERE receiver_id = ? AND is_read = ?`,
		userID, false,
	).Scan(&counts).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to count unread messages")
	}

	CacheUnreadCounts(ctx, userID, &counts)
	return &counts, nil
}

// notify отдает событие в очередь, при недоступности очереди доставляет
// напрямую
func (ms *DirectMessageService) notify(event ChatEvent) {
	go func() {
		ctx := context.Background()
		if QueueServiceInstance != nil && RedisClient != nil {
			if err := QueueServiceInstance.EnqueueChatEvent(ctx, event); err == nil {
				return
			}
		}
		DeliverChatEvent(ctx, event)
	}()
}
