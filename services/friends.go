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

// FriendService - заявки в друзья и сами дружеские связи.
// Жизненный цикл заявки: pending -> accepted | rejected | cancelled,
// все три состояния терминальные. Дружба создается только принятием
// заявки и хранится симметрично - по записи в каждую сторону.
type FriendService struct{}

func NewFriendService() *FriendService {
	return &FriendService{}
}

// SendFriendRequest создает заявку. Повторная заявка при живой pending
// или существующей дружбе - Conflict; терминальная старая заявка не
// мешает отправить новую.
func (fs *FriendService) SendFriendRequest(ctx context.Context, senderID, receiverID int64) (*models.FriendRequest, error) {
	if senderID <= 0 || receiverID <= 0 {
		return nil, apperr.Validationf("sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, apperr.Validationf("cannot send a friend request to yourself")
	}

	request := &models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
		UpdatedAt:  time.Now(),
	}

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var userCount int64
		if err := tx.Model(&models.User{}).Where("id IN ?", []int64{senderID, receiverID}).Count(&userCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check users")
		}
		if userCount != 2 {
			return apperr.NotFoundf("one or both users do not exist")
		}

		var friendCount int64
		if err := tx.Model(&models.Friend{}).
			Where("user_id = ? AND friend_id = ?", senderID, receiverID).
			Count(&friendCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check friendship")
		}
		if friendCount > 0 {
			return apperr.Conflictf("users are already friends")
		}

		var pendingCount int64
		if err := tx.Model(&models.FriendRequest{}).
			Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND status = ?",
				senderID, receiverID, receiverID, senderID, models.FriendRequestPending).
			Count(&pendingCount).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check pending requests")
		}
		if pendingCount > 0 {
			return apperr.Conflictf("friend request already pending")
		}

		return tx.Create(request).Error
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// AcceptFriendRequest принимает заявку. Только адресат; терминальная
// заявка не принимается повторно. Обе стороны дружбы создаются в одной
// транзакции со сменой статуса.
func (fs *FriendService) AcceptFriendRequest(ctx context.Context, requestID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadPendingRequest(tx, requestID)
		if err != nil {
			return err
		}
		if request.ReceiverID != userID {
			return apperr.Forbiddenf("only the receiver can accept a friend request")
		}

		if err := tx.Model(request).Updates(map[string]interface{}{
			"status":     models.FriendRequestAccepted,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to accept friend request")
		}

		if err := tx.Create(&models.Friend{UserID: request.SenderID, FriendID: request.ReceiverID}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to create friendship")
		}
		// Обратная запись для симметрии
		if err := tx.Create(&models.Friend{UserID: request.ReceiverID, FriendID: request.SenderID}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to create reverse friendship")
		}
		return nil
	})
}

// RejectFriendRequest отклоняет заявку, только адресат
func (fs *FriendService) RejectFriendRequest(ctx context.Context, requestID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadPendingRequest(tx, requestID)
		if err != nil {
			return err
		}
		if request.ReceiverID != userID {
			return apperr.Forbiddenf("only the receiver can reject a friend request")
		}
		return tx.Model(request).Updates(map[string]interface{}{
			"status":     models.FriendRequestRejected,
			"updated_at": time.Now(),
		}).Error
	})
}

// CancelFriendRequest отзывает заявку, только отправитель
func (fs *FriendService) CancelFriendRequest(ctx context.Context, requestID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadPendingRequest(tx, requestID)
		if err != nil {
			return err
		}
		if request.SenderID != userID {
			return apperr.Forbiddenf("only the sender can cancel a friend request")
		}
		return tx.Model(request).Updates(map[string]interface{}{
			"status":     models.FriendRequestCancelled,
			"updated_at": time.Now(),
		}).Error
	})
}

// RemoveFriend удаляет дружбу в обе стороны
func (fs *FriendService) RemoveFriend(ctx context.Context, userID, friendID int64) error {
	if userID <= 0 || friendID <= 0 {
		return apperr.Validationf("both user ids are required")
	}
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where(
			"(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID,
		).Delete(&models.Friend{})
		if result.Error != nil {
			return apperr.Wrap(apperr.Internal, result.Error, "failed to remove friend")
		}
		if result.RowsAffected == 0 {
			return apperr.NotFoundf("friendship not found")
		}
		return nil
	})
}

// GetFriendList возвращает друзей пользователя
func (fs *FriendService) GetFriendList(ctx context.Context, userID int64) ([]models.User, error) {
	if userID <= 0 {
		return nil, apperr.Validationf("user id is required")
	}
	var friends []models.User
	err := db.GetReadOnlyDB(ctx).
		Table("users u").
		Joins("JOIN friends f ON f.friend_id = u.id").
		Where("f.user_id = ?", userID).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.city, u.created_at").
		Find(&friends).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load friends")
	}
	return friends, nil
}

// GetPendingRequests возвращает входящие заявки
func (fs *FriendService) GetPendingRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := db.GetReadOnlyDB(ctx).
		Where("receiver_id = ? AND status = ?", userID, models.FriendRequestPending).
		Order("id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load pending requests")
	}
	return requests, nil
}

// GetSentRequests возвращает исходящие заявки в статусе pending
func (fs *FriendService) GetSentRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := db.GetReadOnlyDB(ctx).
		Where("sender_id = ? AND status = ?", userID, models.FriendRequestPending).
		Order("id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load sent requests")
	}
	return requests, nil
}

// AreFriends сообщает, являются ли пользователи друзьями
func (fs *FriendService) AreFriends(ctx context.Context, userID, friendID int64) (bool, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, err, "failed to check friendship")
	}
	return count > 0, nil
}

// loadPendingRequest возвращает заявку в статусе pending.
// Терминальная заявка - Conflict "already processed".
func loadPendingRequest(tx *gorm.DB, requestID int64) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := tx.First(&request, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("friend request not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load friend request")
	}
	if request.Status != models.FriendRequestPending {
		return nil, apperr.Conflictf("friend request already processed")
	}
	return &request, nil
}
