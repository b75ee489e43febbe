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

// GroupService - жизненный цикл групп поддержки, членство, групповые
// сообщения и приглашения. Членство перепроверяется в каждой операции
// чтения и записи: оно могло измениться между вызовами.
type GroupService struct{}

func NewGroupService() *GroupService {
	return &GroupService{}
}

// CreateGroup создает группу, создатель становится администратором
// в той же транзакции
func (gs *GroupService) CreateGroup(ctx context.Context, name, description string, creatorID int64) (*models.Group, error) {
	if name == "" {
		return nil, apperr.Validationf("group name is required")
	}
	if creatorID <= 0 {
		return nil, apperr.Validationf("creator id is required")
	}

	group := &models.Group{
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
		CreatedAt:   time.Now(),
	}

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var creatorCount int64
		if err := tx.Model(&models.User{}).Where("id = ?", creatorID).Count(&creatorCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check creator")
		}
		if creatorCount == 0 {
			return apperr.NotFoundf("creator not found")
		}
		if err := tx.Create(group).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to create group")
		}
		member := &models.GroupMember{
			GroupID: group.ID,
			UserID:  creatorID,
			IsAdmin: true,
		}
		if err := tx.Create(member).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to add creator to group")
		}
		return tx.Create(&models.GroupReadState{
			GroupID:   group.ID,
			UserID:    creatorID,
			UpdatedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup удаляет группу со всем содержимым. Только администратор.
func (gs *GroupService) DeleteGroup(ctx context.Context, groupID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		member, err := loadMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		if !member.IsAdmin {
			return apperr.Forbiddenf("only a group admin can delete the group")
		}
		return deleteGroupCascade(tx, groupID)
	})
}

// JoinGroup добавляет пользователя в группу. Повторное вступление - Conflict.
func (gs *GroupService) JoinGroup(ctx context.Context, groupID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		var userCount int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&userCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check user")
		}
		if userCount == 0 {
			return apperr.NotFoundf("user not found")
		}
		return addMember(tx, groupID, userID)
	})
}

// LeaveGroup исключает пользователя из группы. Повторный выход - NotFound,
// не тихий успех. Если уходит последний администратор, админом становится
// самый давний участник; пустая группа удаляется.
func (gs *GroupService) LeaveGroup(ctx context.Context, groupID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		result := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
		if result.Error != nil {
			return apperr.Wrap(apperr.Internal, result.Error, "failed to leave group")
		}
		if result.RowsAffected == 0 {
			return apperr.NotFoundf("not a member of this group")
		}
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupReadState{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to clear read state")
		}

		var remaining int64
		if err := tx.Model(&models.GroupMember{}).Where("group_id = ?", groupID).Count(&remaining).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to count members")
		}
		if remaining == 0 {
			return deleteGroupCascade(tx, groupID)
		}

		var admins int64
		if err := tx.Model(&models.GroupMember{}).Where("group_id = ? AND is_admin = ?", groupID, true).Count(&admins).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to count admins")
		}
		if admins == 0 {
			// Повышаем самого давнего участника
			var oldest models.GroupMember
			if err := tx.Where("group_id = ?", groupID).Order("joined_at ASC, id ASC").First(&oldest).Error; err != nil {
				return apperr.Wrap(apperr.Internal, err, "failed to find member to promote")
			}
			if err := tx.Model(&oldest).Update("is_admin", true).Error; err != nil {
				return apperr.Wrap(apperr.Internal, err, "failed to promote member")
			}
		}
		return nil
	})
}

// ChangeGroupAdmin меняет флаг администратора участника. Только
// администратор; группа не может остаться без администраторов.
func (gs *GroupService) ChangeGroupAdmin(ctx context.Context, groupID, actorID, targetID int64, isAdmin bool) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		actor, err := loadMember(tx, groupID, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			return apperr.Forbiddenf("only a group admin can change admin rights")
		}
		var target models.GroupMember
		err = tx.Where("group_id = ? AND user_id = ?", groupID, targetID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("target user is not a member of this group")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load target member")
		}

		if !isAdmin && target.IsAdmin {
			var admins int64
			if err := tx.Model(&models.GroupMember{}).Where("group_id = ? AND is_admin = ?", groupID, true).Count(&admins).Error; err != nil {
				return apperr.Wrap(apperr.Internal, err, "failed to count admins")
			}
			if admins <= 1 {
				return apperr.Conflictf("group must keep at least one admin")
			}
		}
		return tx.Model(&target).Update("is_admin", isAdmin).Error
	})
}

// SendGroupMessage отправляет сообщение в группу. Членство проверяется
// в транзакции вставки, кешировать его нельзя.
func (gs *GroupService) SendGroupMessage(ctx context.Context, groupID, senderID int64, content, contentType, mediaURL string, parentMessageID *int64) (*models.GroupMessage, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}
	if contentType == "" {
		contentType = "text"
	}

	msg := &models.GroupMessage{
		GroupID:         groupID,
		SenderID:        senderID,
		Content:         content,
		ContentType:     contentType,
		MediaURL:        mediaURL,
		ParentMessageID: parentMessageID,
		UpdatedAt:       time.Now(),
	}

	var memberIDs []int64
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		if _, err := loadMember(tx, groupID, senderID); err != nil {
			return err
		}

		if parentMessageID != nil {
			var parentCount int64
			if err := tx.Model(&models.GroupMessage{}).Where("id = ? AND group_id = ?", *parentMessageID, groupID).Count(&parentCount).Error; err != nil {
				return apperr.Wrap(apperr.Internal, err, "failed to check parent message")
			}
			if parentCount == 0 {
				return apperr.Validationf("parent message does not belong to this group")
			}
		}

		if err := tx.Create(msg).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to send group message")
		}

		// Свое сообщение отправитель уже прочитал
		if err := advanceReadState(tx, groupID, senderID, msg.ID); err != nil {
			return err
		}

		return tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id != ?", groupID, senderID).
			Pluck("user_id", &memberIDs).Error
	})
	if err != nil {
		return nil, err
	}

	for _, memberID := range memberIDs {
		gs.notify(ChatEvent{
			Event:     "group_message",
			UserID:    memberID,
			MessageID: msg.ID,
			SenderID:  senderID,
			GroupID:   groupID,
			Content:   content,
			CreatedAt: msg.CreatedAt,
		})
	}
	return msg, nil
}

// EditGroupMessage меняет содержимое группового сообщения, только автор
func (gs *GroupService) EditGroupMessage(ctx context.Context, messageID, senderID int64, content, contentType, mediaURL string) (*models.GroupMessage, error) {
	if content == "" {
		return nil, apperr.Validationf("content is required")
	}

	var msg models.GroupMessage
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
		return tx.Save(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetGroupMessages возвращает сообщения группы с тем же курсорным
// контрактом, что и личная история. Членство перепроверяется при каждом
// вызове; is_unread выводится из прогресса чтения запрашивающего.
func (gs *GroupService) GetGroupMessages(ctx context.Context, groupID, userID int64, limit int, beforeMessageID int64) ([]models.GroupMessageView, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultHistoryLimit
	}

	// На каждый запрос берется свежий handle: цепочка gorm копит условия
	if err := requireGroup(db.GetReadOnlyDB(ctx), groupID); err != nil {
		return nil, err
	}
	if _, err := loadMember(db.GetReadOnlyDB(ctx), groupID, userID); err != nil {
		return nil, err
	}

	query := db.GetReadOnlyDB(ctx).Model(&models.GroupMessage{}).
		Where("group_id = ?", groupID).
		Order("id DESC").
		Limit(limit)
	if beforeMessageID > 0 {
		query = query.Where("id < ?", beforeMessageID)
	}

	var messages []models.GroupMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load group messages")
	}

	var state models.GroupReadState
	lastRead := int64(0)
	err := db.GetReadOnlyDB(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&state).Error
	if err == nil {
		lastRead = state.LastReadMessageID
	}

	senderIDs := make([]int64, 0, len(messages))
	for _, m := range messages {
		senderIDs = append(senderIDs, m.SenderID)
	}
	nameByID := make(map[int64]string)
	if len(senderIDs) > 0 {
		var senders []models.User
		if err := db.GetReadOnlyDB(ctx).Where("id IN ?", senderIDs).Find(&senders).Error; err == nil {
			for _, s := range senders {
				nameByID[s.ID] = s.FirstName + " " + s.LastName
			}
		}
	}

	views := make([]models.GroupMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, models.GroupMessageView{
			GroupMessage: m,
			SenderName:   nameByID[m.SenderID],
			IsUnread:     m.ID > lastRead && m.SenderID != userID,
		})
	}
	return views, nil
}

// MarkGroupRead продвигает прогресс чтения вперед. Откат назад
// игнорируется, повторный вызов безвреден.
func (gs *GroupService) MarkGroupRead(ctx context.Context, groupID, userID, upToMessageID int64) error {
	if upToMessageID <= 0 {
		return apperr.Validationf("message id is required")
	}
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		if _, err := loadMember(tx, groupID, userID); err != nil {
			return err
		}
		// Прогресс не может убежать вперед реальных сообщений,
		// иначе будущие сообщения родятся уже прочитанными
		var maxID int64
		if err := tx.Model(&models.GroupMessage{}).
			Where("group_id = ?", groupID).
			Select("COALESCE(MAX(id), 0)").
			Scan(&maxID).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to resolve last message")
		}
		if upToMessageID > maxID {
			upToMessageID = maxID
		}
		if upToMessageID == 0 {
			return nil
		}
		return advanceReadState(tx, groupID, userID, upToMessageID)
	})
	if err != nil {
		return err
	}
	InvalidateUnreadCounts(ctx, userID)
	return nil
}

// SendGroupInvite приглашает пользователя в группу. Приглашать может
// любой участник; дубликаты отклоняются, а не копятся.
func (gs *GroupService) SendGroupInvite(ctx context.Context, groupID, inviterID, inviteeID int64) (*models.GroupInvite, error) {
	if inviterID == inviteeID {
		return nil, apperr.Validationf("cannot invite yourself")
	}

	invite := &models.GroupInvite{
		GroupID:   groupID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    "pending",
	}

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireGroup(tx, groupID); err != nil {
			return err
		}
		if _, err := loadMember(tx, groupID, inviterID); err != nil {
			return err
		}
		var inviteeCount int64
		if err := tx.Model(&models.User{}).Where("id = ?", inviteeID).Count(&inviteeCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check invitee")
		}
		if inviteeCount == 0 {
			return apperr.NotFoundf("invitee not found")
		}
		var memberCount int64
		if err := tx.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, inviteeID).Count(&memberCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check membership")
		}
		if memberCount > 0 {
			return apperr.Conflictf("user is already a member of this group")
		}
		var pendingCount int64
		if err := tx.Model(&models.GroupInvite{}).
			Where("group_id = ? AND invitee_id = ? AND status = ?", groupID, inviteeID, "pending").
			Count(&pendingCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check pending invites")
		}
		if pendingCount > 0 {
			return apperr.Conflictf("invite already pending")
		}
		return tx.Create(invite).Error
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// AcceptGroupInvite принимает приглашение и вступает в группу
func (gs *GroupService) AcceptGroupInvite(ctx context.Context, inviteID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := loadPendingInvite(tx, inviteID, userID)
		if err != nil {
			return err
		}
		if err := tx.Model(invite).Update("status", "accepted").Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to accept invite")
		}
		if err := requireGroup(tx, invite.GroupID); err != nil {
			return err
		}
		return addMember(tx, invite.GroupID, userID)
	})
}

// DeclineGroupInvite отклоняет приглашение
func (gs *GroupService) DeclineGroupInvite(ctx context.Context, inviteID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := loadPendingInvite(tx, inviteID, userID)
		if err != nil {
			return err
		}
		return tx.Model(invite).Update("status", "declined").Error
	})
}

// GetPendingInvites возвращает входящие приглашения пользователя
func (gs *GroupService) GetPendingInvites(ctx context.Context, userID int64) ([]models.GroupInvite, error) {
	var invites []models.GroupInvite
	err := db.GetReadOnlyDB(ctx).
		Where("invitee_id = ? AND status = ?", userID, "pending").
		Order("id DESC").
		Find(&invites).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load invites")
	}
	return invites, nil
}

// ListGroups возвращает группы пользователя с производными полями:
// число участников, непрочитанные, последнее сообщение, флаг админа
func (gs *GroupService) ListGroups(ctx context.Context, userID int64) ([]models.GroupView, error) {
	var memberships []models.GroupMember
	if err := db.GetReadOnlyDB(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load memberships")
	}
	if len(memberships) == 0 {
		return []models.GroupView{}, nil
	}

	groupIDs := make([]int64, 0, len(memberships))
	adminByGroup := make(map[int64]bool, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
		adminByGroup[m.GroupID] = m.IsAdmin
	}

	var groups []models.Group
	if err := db.GetReadOnlyDB(ctx).Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load groups")
	}

	type countRow struct {
		GroupID int64
		Cnt     int64
	}
	var memberCounts []countRow
	if err := db.GetReadOnlyDB(ctx).Model(&models.GroupMember{}).
		Select("group_id, COUNT(*) AS cnt").
		Where("group_id IN ?", groupIDs).
		Group("group_id").
		Scan(&memberCounts).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to count members")
	}
	membersByGroup := make(map[int64]int64, len(memberCounts))
	for _, row := range memberCounts {
		membersByGroup[row.GroupID] = row.Cnt
	}

	var states []models.GroupReadState
	if err := db.GetReadOnlyDB(ctx).Where("user_id = ? AND group_id IN ?", userID, groupIDs).Find(&states).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load read states")
	}
	lastReadByGroup := make(map[int64]int64, len(states))
	for _, s := range states {
		lastReadByGroup[s.GroupID] = s.LastReadMessageID
	}

	var lastMessages []models.GroupMessage
	err := db.GetReadOnlyDB(ctx).Raw(`
		SELECT gm.* FROM group_messages gm
		JOIN (
			SELECT group_id, MAX(id) AS id FROM group_messages
			WHERE group_id IN ? GROUP BY group_id
		) latest ON latest.id = gm.id`, groupIDs).Scan(&lastMessages).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load last messages")
	}
	lastByGroup := make(map[int64]models.GroupMessage, len(lastMessages))
	for _, m := range lastMessages {
		lastByGroup[m.GroupID] = m
	}

	views := make([]models.GroupView, 0, len(groups))
	for _, g := range groups {
		var unread int64
		if err := db.GetReadOnlyDB(ctx).Model(&models.GroupMessage{}).
			Where("group_id = ? AND id > ? AND sender_id != ?", g.ID, lastReadByGroup[g.ID], userID).
			Count(&unread).Error; err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to count unread")
		}
		view := models.GroupView{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			CreatedBy:   g.CreatedBy,
			CreatedAt:   g.CreatedAt,
			MemberCount: membersByGroup[g.ID],
			UnreadCount: unread,
			IsAdmin:     adminByGroup[g.ID],
		}
		if last, ok := lastByGroup[g.ID]; ok {
			view.LastMessage = last.Content
			view.LastMessageID = last.ID
		}
		views = append(views, view)
	}
	return views, nil
}

// GetGroupMembers возвращает участников группы, доступно только участникам
func (gs *GroupService) GetGroupMembers(ctx context.Context, groupID, userID int64) ([]models.GroupMember, error) {
	if err := requireGroup(db.GetReadOnlyDB(ctx), groupID); err != nil {
		return nil, err
	}
	if _, err := loadMember(db.GetReadOnlyDB(ctx), groupID, userID); err != nil {
		return nil, err
	}
	var members []models.GroupMember
	if err := db.GetReadOnlyDB(ctx).Where("group_id = ?", groupID).Order("joined_at ASC, id ASC").Find(&members).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load members")
	}
	return members, nil
}

func (gs *GroupService) notify(event ChatEvent) {
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

// requireGroup проверяет существование группы
func requireGroup(tx *gorm.DB, groupID int64) error {
	var count int64
	if err := tx.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to check group")
	}
	if count == 0 {
		return apperr.NotFoundf("group not found")
	}
	return nil
}

// loadMember возвращает членство или Forbidden
func loadMember(tx *gorm.DB, groupID, userID int64) (*models.GroupMember, error) {
	var member models.GroupMember
	err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Forbiddenf("not a member of this group")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load membership")
	}
	return &member, nil
}

// addMember создает членство и прогресс чтения. Новому участнику
// непрочитанным считается только то, что пришло после вступления.
func addMember(tx *gorm.DB, groupID, userID int64) error {
	var memberCount int64
	if err := tx.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&memberCount).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to check membership")
	}
	if memberCount > 0 {
		return apperr.Conflictf("already a member of this group")
	}
	if err := tx.Create(&models.GroupMember{GroupID: groupID, UserID: userID}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to join group")
	}

	var maxID int64
	row := tx.Model(&models.GroupMessage{}).Where("group_id = ?", groupID).Select("COALESCE(MAX(id), 0)").Row()
	if err := row.Scan(&maxID); err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to read last message id")
	}
	return tx.Create(&models.GroupReadState{
		GroupID:           groupID,
		UserID:            userID,
		LastReadMessageID: maxID,
		UpdatedAt:         time.Now(),
	}).Error
}

// advanceReadState двигает прогресс чтения только вперед
func advanceReadState(tx *gorm.DB, groupID, userID, messageID int64) error {
	var state models.GroupReadState
	err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&models.GroupReadState{
			GroupID:           groupID,
			UserID:            userID,
			LastReadMessageID: messageID,
			UpdatedAt:         time.Now(),
		}).Error
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to load read state")
	}
	if messageID <= state.LastReadMessageID {
		return nil
	}
	return tx.Model(&models.GroupReadState{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]interface{}{
			"last_read_message_id": messageID,
			"updated_at":           time.Now(),
		}).Error
}

// loadPendingInvite возвращает приглашение в статусе pending,
// адресованное пользователю
func loadPendingInvite(tx *gorm.DB, inviteID, userID int64) (*models.GroupInvite, error) {
	var invite models.GroupInvite
	err := tx.First(&invite, inviteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("invite not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load invite")
	}
	if invite.InviteeID != userID {
		return nil, apperr.Forbiddenf("invite is addressed to another user")
	}
	if invite.Status != "pending" {
		return nil, apperr.Conflictf("invite already processed")
	}
	return &invite, nil
}

// deleteGroupCascade удаляет группу и все связанные записи
func deleteGroupCascade(tx *gorm.DB, groupID int64) error {
	if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMessage{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to delete group messages")
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupReadState{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to delete read states")
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupInvite{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to delete invites")
	}
	if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to delete members")
	}
	if err := tx.Delete(&models.Group{}, groupID).Error; err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to delete group")
	}
	return nil
}
