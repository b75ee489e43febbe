package models

import "time"

// Статусы заявки в друзья. Терминальные состояния не допускают
// повторных переходов.
const (
	FriendRequestPending   = "pending"
	FriendRequestAccepted  = "accepted"
	FriendRequestRejected  = "rejected"
	FriendRequestCancelled = "cancelled"
)

// FriendRequest - заявка в друзья
type FriendRequest struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"index:idx_fr_pair" json:"sender_id"`
	ReceiverID int64     `gorm:"index:idx_fr_pair" json:"receiver_id"`
	Status     string    `gorm:"size:20;default:pending" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Friend - материализованная дружба. Связь симметричная: на каждую
// пару хранится по записи в обе стороны, обе создаются и удаляются вместе.
type Friend struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index:idx_friend_pair,unique" json:"user_id"`
	FriendID  int64     `gorm:"index:idx_friend_pair,unique" json:"friend_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Friend) TableName() string {
	return "friends"
}
