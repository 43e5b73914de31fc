package models

import (
	"fmt"
	"time"
)

type ConversationKind string

const (
	IndividualConversation ConversationKind = "individual"
	GroupConversation      ConversationKind = "group"
)

type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind ConversationKind `gorm:"type:varchar(20);not null;default:'individual'" json:"kind"`

	// Group-only fields. Individual conversations have no name; their
	// display name is the other participant, resolved at query time.
	Name    string `gorm:"size:100" json:"name"`
	AdminID *uint  `json:"admin_id"`
	Admin   *User  `gorm:"foreignKey:AdminID" json:"admin,omitempty"`

	// PairKey is "minID:maxID" for active individual conversations and
	// NULL otherwise. The partial uniqueness makes first-contact
	// creation idempotent under concurrent requests.
	PairKey *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`

	// LastMessageID always points at the tail of the message log; it
	// is written in the same transaction as the append.
	LastMessageID *uint    `json:"last_message_id"`
	LastMessage   *Message `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`

	Active bool `gorm:"default:true" json:"active"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"-"`
}

// ConversationParticipant is one row per member. Keeping the unread
// counter here lets an append increment every other member's counter
// with a single UPDATE instead of rewriting a serialized map.
type ConversationParticipant struct {
	ConversationID uint      `gorm:"primaryKey" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey" json:"user_id"`
	UnreadCount    int       `gorm:"not null;default:0" json:"unread_count"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

// PairKey normalizes an unordered user pair to its canonical key.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ID                uint             `json:"id"`
	Kind              ConversationKind `json:"kind"`
	DisplayName       string           `json:"displayName"`
	OtherParticipants []UserResponse   `json:"otherParticipants"`
	LastMessage       *MessageResponse `json:"lastMessage"`
	UnreadCount       int              `json:"unreadCount"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	IsGroup           bool             `json:"isGroup"`
}

// ConversationDetail is the full view returned when a conversation is
// opened: metadata plus the hydrated message log.
type ConversationDetail struct {
	ID                uint              `json:"id"`
	Kind              ConversationKind  `json:"kind"`
	DisplayName       string            `json:"displayName"`
	Admin             *SenderInfo       `json:"admin,omitempty"`
	OtherParticipants []UserResponse    `json:"otherParticipants"`
	Messages          []MessageResponse `json:"messages"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	IsGroup           bool              `json:"isGroup"`
}
