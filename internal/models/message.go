package models

import (
	"time"
)

type MessageKind string

const (
	TextMessage  MessageKind = "text"
	FileMessage  MessageKind = "file"
	ImageMessage MessageKind = "image"
)

type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConversationID uint `gorm:"not null;index:idx_conversation_created,priority:1" json:"conversation_id"`
	SenderID       uint `gorm:"not null;index" json:"sender_id"`
	Sender         User `gorm:"foreignKey:SenderID" json:"sender"`

	Content string      `gorm:"type:text" json:"content"`
	Kind    MessageKind `gorm:"type:varchar(20);default:'text'" json:"kind"`

	// Set only for file/image messages. The URL is opaque to this
	// service; storage issues and resolves it.
	AttachmentURL  string `json:"attachment_url"`
	AttachmentName string `json:"attachment_name"`

	ReadBy []MessageReceipt `gorm:"foreignKey:MessageID" json:"read_by"`
}

// MessageReceipt records the first time a participant read a message.
// The composite primary key keeps the read set duplicate-free per
// participant.
type MessageReceipt struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`
}

type ReceiptResponse struct {
	ParticipantID uint      `json:"participantId"`
	ReadAt        time.Time `json:"readAt"`
}

// MessageResponse is the client-facing message contract. Polling
// clients round-trip this shape, so field names are load-bearing.
type MessageResponse struct {
	ID             uint              `json:"id"`
	Sender         SenderInfo        `json:"sender"`
	Content        string            `json:"content"`
	Kind           MessageKind       `json:"kind"`
	AttachmentURL  string            `json:"attachmentUrl"`
	AttachmentName string            `json:"attachmentName"`
	CreatedAt      time.Time         `json:"createdAt"`
	ReadBy         []ReceiptResponse `json:"readBy"`
}

func (m *Message) ToResponse() MessageResponse {
	readBy := make([]ReceiptResponse, 0, len(m.ReadBy))
	for _, r := range m.ReadBy {
		readBy = append(readBy, ReceiptResponse{ParticipantID: r.UserID, ReadAt: r.ReadAt})
	}
	return MessageResponse{
		ID:             m.ID,
		Sender:         m.Sender.ToSenderInfo(),
		Content:        m.Content,
		Kind:           m.Kind,
		AttachmentURL:  m.AttachmentURL,
		AttachmentName: m.AttachmentName,
		CreatedAt:      m.CreatedAt,
		ReadBy:         readBy,
	}
}
