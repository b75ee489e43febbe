package models

import (
	"time"
)

// Group - группа поддержки
type Group struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedBy   int64     `gorm:"index" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupMember - участие пользователя в группе, не более одной записи
// на пару (группа, пользователь)
type GroupMember struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID  int64     `gorm:"index:idx_group_member,unique" json:"group_id"`
	UserID   int64     `gorm:"index:idx_group_member,unique" json:"user_id"`
	IsAdmin  bool      `gorm:"default:false" json:"is_admin"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

// GroupMessage - сообщение в группе
type GroupMessage struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID         int64     `gorm:"index:idx_gm_group" json:"group_id"`
	SenderID        int64     `gorm:"index" json:"sender_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ContentType     string    `gorm:"size:30;default:text" json:"content_type"`
	MediaURL        string    `gorm:"size:512" json:"media_url,omitempty"`
	ParentMessageID *int64    `gorm:"index" json:"parent_message_id,omitempty"`
	IsEdited        bool      `gorm:"default:false" json:"is_edited"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (GroupMessage) TableName() string {
	return "group_messages"
}

// GroupReadState - прогресс чтения группы конкретным пользователем.
// LastReadMessageID монотонно растет и никогда не откатывается.
type GroupReadState struct {
	GroupID           int64     `gorm:"primaryKey" json:"group_id"`
	UserID            int64     `gorm:"primaryKey" json:"user_id"`
	LastReadMessageID int64     `gorm:"not null;default:0" json:"last_read_message_id"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (GroupReadState) TableName() string {
	return "group_read_states"
}

// GroupInvite - приглашение в группу.
// Status: "pending", "accepted", "declined"
type GroupInvite struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64     `gorm:"index" json:"group_id"`
	InviterID int64     `json:"inviter_id"`
	InviteeID int64     `gorm:"index" json:"invitee_id"`
	Status    string    `gorm:"size:20;default:pending" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GroupInvite) TableName() string {
	return "group_invites"
}

// GroupView - группа глазами конкретного пользователя: производные поля
// считаются запросом, не хранятся
type GroupView struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	MemberCount   int64     `json:"member_count"`
	UnreadCount   int64     `json:"unread_count"`
	LastMessage   string    `json:"last_message,omitempty"`
	LastMessageID int64     `json:"last_message_id,omitempty"`
	IsAdmin       bool      `json:"is_admin"`
}

// GroupMessageView - сообщение группы с признаком непрочитанности
// для запрашивающего пользователя
type GroupMessageView struct {
	GroupMessage
	SenderName string `json:"sender_name"`
	IsUnread   bool   `json:"is_unread"`
}
