package models

import (
	"time"
)

// DirectMessage - личное сообщение между двумя пользователями.
// Идентификатор неизменен после создания, редактирование меняет только
// содержимое и ставит is_edited.
type DirectMessage struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID        int64     `gorm:"column:sender_id;index:idx_dm_sender" json:"sender_id"`
	ReceiverID      int64     `gorm:"column:receiver_id;index:idx_dm_receiver" json:"receiver_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ContentType     string    `gorm:"size:30;default:text" json:"content_type"`
	MediaURL        string    `gorm:"size:512" json:"media_url,omitempty"`
	ParentMessageID *int64    `gorm:"index" json:"parent_message_id,omitempty"`
	IsRead          bool      `gorm:"default:false" json:"is_read"`
	IsEdited        bool      `gorm:"default:false" json:"is_edited"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (DirectMessage) TableName() string {
	return "direct_messages"
}

// ChatSummary - строка списка диалогов: последнее сообщение и непрочитанные
// по каждому собеседнику
type ChatSummary struct {
	PartnerID     int64     `json:"partner_id"`
	PartnerName   string    `json:"partner_name"`
	LastMessageID int64     `json:"last_message_id"`
	LastMessage   string    `json:"last_message"`
	LastSenderID  int64     `json:"last_sender_id"`
	LastSentAt    time.Time `json:"last_sent_at"`
	UnreadCount   int64     `json:"unread_count"`
}

// UnreadCounts - счетчики непрочитанного двух гранулярностей.
// Dialogs считает собеседников с хотя бы одним непрочитанным, поэтому
// всегда Dialogs <= Total.
type UnreadCounts struct {
	Total   int64 `json:"total"`
	Dialogs int64 `json:"dialogs"`
}
