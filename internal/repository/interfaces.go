package repository

import (
	"github.com/raushan728/studyhub-backend/internal/models"
)

// UserRepositoryInterface is the boundary to the platform's identity
// records. The chat core only reads through it; account management
// lives elsewhere.
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
	FindByEmail(email string) (*models.User, error)
	ListActiveExcept(userID uint) ([]models.User, error)
}

// ConversationRepositoryInterface defines the contract for conversation
// aggregate persistence.
type ConversationRepositoryInterface interface {
	CreateOrGetIndividual(userA, userB uint) (*models.Conversation, bool, error)
	CreateGroup(conversation *models.Conversation, memberIDs []uint) error
	FindActiveForParticipant(conversationID, userID uint) (*models.Conversation, error)
	GetParticipants(conversationID uint) ([]models.ConversationParticipant, error)
	ListParticipantsByConversations(conversationIDs []uint) ([]models.ConversationParticipant, error)
	ListSummaries(userID uint) ([]ConversationSummaryRow, error)
	Deactivate(conversationID uint) error
}

// MessageRepositoryInterface defines the contract for the message log
// and its read receipts. Append and MarkConversationRead are the two
// mutation paths and both run as single atomic updates against current
// persisted state.
type MessageRepositoryInterface interface {
	Append(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	ListByConversation(conversationID uint) ([]models.Message, error)
	ListNewerThan(conversationID, afterMessageID uint) ([]models.Message, error)
	MarkConversationRead(conversationID, userID uint) error
}
