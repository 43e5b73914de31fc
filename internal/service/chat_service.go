package service

import (
	"errors"

	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/raushan728/studyhub-backend/internal/repository"
	"github.com/raushan728/studyhub-backend/internal/validation"
	"gorm.io/gorm"
)

// ChatService owns every mutation of the conversation aggregate:
// creation, message append, read acknowledgment and soft deletion.
type ChatService struct {
	conversationRepo repository.ConversationRepositoryInterface
	messageRepo      repository.MessageRepositoryInterface
	userRepo         repository.UserRepositoryInterface
}

func NewChatService(
	conversationRepo repository.ConversationRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// Attachment is the pair issued by blob storage for an uploaded file.
type Attachment struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
}

// CreateIndividual starts (or returns) the one active direct
// conversation between two users. The unordered pair is the identity:
// calling this twice with swapped arguments yields the same
// conversation.
func (s *ChatService) CreateIndividual(initiatorID, otherID uint) (*models.Conversation, error) {
	if otherID == 0 || otherID == initiatorID {
		return nil, ErrInvalidArgument
	}

	other, err := s.userRepo.FindByID(otherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidArgument
		}
		return nil, err
	}
	if !other.IsActive {
		return nil, ErrInvalidArgument
	}

	conversation, _, err := s.conversationRepo.CreateOrGetIndividual(initiatorID, otherID)
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// CreateGroup always creates a new conversation; identical-membership
// groups are allowed to coexist. The initiator becomes the admin.
func (s *ChatService) CreateGroup(initiatorID uint, name string, memberIDs []uint) (*models.Conversation, error) {
	name = validation.TrimAndLimit(name, validation.MaxGroupNameLength())
	if name == "" {
		return nil, ErrInvalidArgument
	}

	// Collapse duplicates and the initiator out of the member list.
	seen := map[uint]bool{initiatorID: true}
	var members []uint
	for _, id := range memberIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil, ErrInvalidArgument
	}

	found, err := s.userRepo.FindByIDs(members)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, u := range found {
		if u.IsActive {
			active++
		}
	}
	if active != len(members) {
		return nil, ErrInvalidArgument
	}

	adminID := initiatorID
	conversation := &models.Conversation{
		Kind:    models.GroupConversation,
		Name:    name,
		AdminID: &adminID,
		Active:  true,
	}
	allMembers := append([]uint{initiatorID}, members...)
	if err := s.conversationRepo.CreateGroup(conversation, allMembers); err != nil {
		return nil, err
	}
	return conversation, nil
}

// AppendMessage appends to the log and returns the stored message with
// its hydrated sender. Derived state (tail pointer, unread counters)
// moves inside the same repository transaction as the insert.
func (s *ChatService) AppendMessage(conversationID, senderID uint, content string, kind models.MessageKind, attachment *Attachment) (*models.Message, error) {
	content = validation.TrimAndLimit(content, validation.MaxMessageLength())
	if content == "" && attachment == nil {
		return nil, ErrInvalidArgument
	}
	if kind == "" {
		kind = models.TextMessage
	}
	if attachment != nil && kind == models.TextMessage {
		kind = models.FileMessage
	}
	if attachment == nil && kind != models.TextMessage {
		return nil, ErrInvalidArgument
	}

	if _, err := s.conversationRepo.FindActiveForParticipant(conversationID, senderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Kind:           kind,
	}
	if attachment != nil {
		message.AttachmentURL = attachment.URL
		message.AttachmentName = attachment.OriginalName
	}

	if err := s.messageRepo.Append(message); err != nil {
		// Deactivated between the guard and the append.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.messageRepo.FindByID(message.ID)
}

// MarkRead acknowledges every message in the conversation for the user
// and zeroes their unread counter. Idempotent.
func (s *ChatService) MarkRead(conversationID, userID uint) error {
	if _, err := s.conversationRepo.FindActiveForParticipant(conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.messageRepo.MarkConversationRead(conversationID, userID)
}

// ParticipantIDs lists the member ids of a conversation, active or
// not. Used for cache invalidation after mutations.
func (s *ChatService) ParticipantIDs(conversationID uint) ([]uint, error) {
	participants, err := s.conversationRepo.GetParticipants(conversationID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

// Deactivate soft-deletes an individual conversation. Group
// conversations cannot be deactivated or left by anyone, admin
// included.
func (s *ChatService) Deactivate(conversationID, requesterID uint) error {
	conversation, err := s.conversationRepo.FindActiveForParticipant(conversationID, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if conversation.Kind != models.IndividualConversation {
		return ErrForbidden
	}
	return s.conversationRepo.Deactivate(conversation.ID)
}
