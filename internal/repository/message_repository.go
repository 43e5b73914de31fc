package repository

import (
	"github.com/raushan728/studyhub-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts a message and applies the derived updates in one
// transaction: last_message_id moves to the new tail and every other
// participant's unread counter is incremented in place. Counter and
// pointer are never computed client-side from a previously loaded
// copy, so concurrent appends cannot overwrite each other.
func (r *MessageRepository) Append(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		res := tx.Exec(`
			UPDATE conversations
			SET last_message_id = ?, updated_at = NOW()
			WHERE id = ? AND active = TRUE
		`, message.ID, message.ConversationID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Exec(`
			UPDATE conversation_participants
			SET unread_count = unread_count + 1
			WHERE conversation_id = ? AND user_id <> ?
		`, message.ConversationID, message.SenderID).Error
	})
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").Preload("ReadBy").First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) ListByConversation(conversationID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").Preload("ReadBy").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// ListNewerThan returns messages appended after the given id, oldest
// first. Message ids are monotonic within a conversation, so polling
// clients use the last id they saw as the high-water mark.
func (r *MessageRepository) ListNewerThan(conversationID, afterMessageID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Sender").Preload("ReadBy").
		Where("conversation_id = ? AND id > ?", conversationID, afterMessageID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// MarkConversationRead adds a receipt for every message the user has
// not read yet and zeroes their unread counter. The anti-join insert
// makes the whole operation idempotent; re-running it writes nothing
// new.
func (r *MessageRepository) MarkConversationRead(conversationID, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO message_receipts (message_id, user_id, read_at)
			SELECT m.id, ?, NOW()
			FROM messages m
			WHERE m.conversation_id = ?
			ON CONFLICT (message_id, user_id) DO NOTHING
		`, userID, conversationID).Error; err != nil {
			return err
		}

		return tx.Exec(`
			UPDATE conversation_participants
			SET unread_count = 0
			WHERE conversation_id = ? AND user_id = ?
		`, conversationID, userID).Error
	})
}
