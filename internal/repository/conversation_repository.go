package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/raushan728/studyhub-backend/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGetIndividual returns the active individual conversation for
// the pair, creating it if none exists. The unique pair_key makes this
// safe under concurrent first-contact requests: one insert wins, the
// other sees zero rows affected and both load the same row.
func (r *ConversationRepository) CreateOrGetIndividual(userA, userB uint) (*models.Conversation, bool, error) {
	key := models.PairKey(userA, userB)
	var conversation models.Conversation
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			INSERT INTO conversations (kind, pair_key, active, created_at, updated_at)
			VALUES ('individual', ?, TRUE, NOW(), NOW())
			ON CONFLICT (pair_key) DO NOTHING
		`, key)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0

		if err := tx.Where("pair_key = ?", key).First(&conversation).Error; err != nil {
			return err
		}

		if !created {
			return nil
		}
		for _, uid := range []uint{userA, userB} {
			if err := tx.Exec(`
				INSERT INTO conversation_participants (conversation_id, user_id, unread_count, joined_at)
				VALUES (?, ?, 0, NOW())
				ON CONFLICT (conversation_id, user_id) DO NOTHING
			`, conversation.ID, uid).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &conversation, created, nil
}

func (r *ConversationRepository) CreateGroup(conversation *models.Conversation, memberIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return err
		}
		for _, uid := range memberIDs {
			if err := tx.Exec(`
				INSERT INTO conversation_participants (conversation_id, user_id, unread_count, joined_at)
				VALUES (?, ?, 0, NOW())
				ON CONFLICT (conversation_id, user_id) DO NOTHING
			`, conversation.ID, uid).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindActiveForParticipant loads a conversation only when it is active
// and the user belongs to it. Missing, inactive and not-a-member all
// surface as gorm.ErrRecordNotFound.
func (r *ConversationRepository) FindActiveForParticipant(conversationID, userID uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id AND cp.user_id = ?", userID).
		Where("conversations.id = ? AND conversations.active = ?", conversationID, true).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) GetParticipants(conversationID uint) ([]models.ConversationParticipant, error) {
	var participants []models.ConversationParticipant
	err := r.db.Preload("User").
		Where("conversation_id = ?", conversationID).
		Order("joined_at ASC, user_id ASC").
		Find(&participants).Error
	return participants, err
}

// ListParticipantsByConversations batch-loads membership for a set of
// conversations so list rendering stays at two queries total.
func (r *ConversationRepository) ListParticipantsByConversations(conversationIDs []uint) ([]models.ConversationParticipant, error) {
	var participants []models.ConversationParticipant
	if len(conversationIDs) == 0 {
		return participants, nil
	}
	err := r.db.Preload("User").
		Where("conversation_id IN ?", conversationIDs).
		Order("conversation_id ASC, joined_at ASC, user_id ASC").
		Find(&participants).Error
	return participants, err
}

// Deactivate soft-deletes. Clearing pair_key frees the unique slot so
// a later first contact between the same pair starts a fresh
// conversation, matching the dedup lookup which only sees active rows.
func (r *ConversationRepository) Deactivate(conversationID uint) error {
	return r.db.Exec(`
		UPDATE conversations
		SET active = FALSE, pair_key = NULL, updated_at = NOW()
		WHERE id = ?
	`, conversationID).Error
}

// ConversationSummaryRow is a denormalized row for one conversation in
// a user's list: conversation metadata, the caller's unread counter and
// the last message with its sender profile.
//
// NOTE: deliberately not the full models.Conversation / models.Message
// shape; one query, no N+1.
type ConversationSummaryRow struct {
	ConversationID uint      `gorm:"column:conversation_id"`
	Kind           string    `gorm:"column:kind"`
	Name           string    `gorm:"column:name"`
	AdminID        *uint     `gorm:"column:admin_id"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`

	UnreadCount int `gorm:"column:unread_count"`

	MessageID             sql.NullInt64  `gorm:"column:message_id"`
	MessageSenderID       sql.NullInt64  `gorm:"column:message_sender_id"`
	MessageContent        sql.NullString `gorm:"column:message_content"`
	MessageKind           sql.NullString `gorm:"column:message_kind"`
	MessageAttachmentURL  sql.NullString `gorm:"column:message_attachment_url"`
	MessageAttachmentName sql.NullString `gorm:"column:message_attachment_name"`
	MessageCreatedAt      sql.NullTime   `gorm:"column:message_created_at"`

	SenderName   sql.NullString `gorm:"column:sender_name"`
	SenderAvatar sql.NullString `gorm:"column:sender_avatar"`
}

func (r *ConversationRepository) ListSummaries(userID uint) ([]ConversationSummaryRow, error) {
	query := strings.TrimSpace(`
SELECT
	c.id AS conversation_id,
	c.kind,
	c.name,
	c.admin_id,
	c.updated_at,
	cp.unread_count,
	lm.id AS message_id,
	lm.sender_id AS message_sender_id,
	lm.content AS message_content,
	lm.kind AS message_kind,
	lm.attachment_url AS message_attachment_url,
	lm.attachment_name AS message_attachment_name,
	lm.created_at AS message_created_at,
	sender.name AS sender_name,
	sender.avatar AS sender_avatar
FROM conversations c
JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id = ?
LEFT JOIN LATERAL (
	SELECT id, sender_id, content, kind, attachment_url, attachment_name, created_at
	FROM messages
	WHERE conversation_id = c.id
	ORDER BY created_at DESC, id DESC
	LIMIT 1
) lm ON TRUE
LEFT JOIN users sender ON sender.id = lm.sender_id
WHERE c.active = TRUE
ORDER BY c.updated_at DESC, c.id DESC
`)

	var rows []ConversationSummaryRow
	err := r.db.Raw(query, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
