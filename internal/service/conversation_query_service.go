package service

import (
	"errors"
	"time"

	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/raushan728/studyhub-backend/internal/repository"
	"gorm.io/gorm"
)

// ConversationQueryService is the read side: conversation lists with
// derived display fields, full conversation views and polling fetches.
// It never mutates; read-on-view is composed in the handler as an
// explicit GetConversation + MarkRead pair.
type ConversationQueryService struct {
	conversationRepo repository.ConversationRepositoryInterface
	messageRepo      repository.MessageRepositoryInterface
	userRepo         repository.UserRepositoryInterface
}

func NewConversationQueryService(
	conversationRepo repository.ConversationRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
) *ConversationQueryService {
	return &ConversationQueryService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// ListForUser returns the user's active conversations, most recent
// activity first. Individual conversations are titled with the other
// participant's current name, resolved on every call.
func (s *ConversationQueryService) ListForUser(userID uint) ([]models.ConversationSummary, error) {
	rows, err := s.conversationRepo.ListSummaries(userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ConversationID)
	}
	participants, err := s.conversationRepo.ListParticipantsByConversations(ids)
	if err != nil {
		return nil, err
	}
	others := make(map[uint][]models.UserResponse, len(rows))
	for _, p := range participants {
		if p.UserID == userID {
			continue
		}
		others[p.ConversationID] = append(others[p.ConversationID], p.User.ToResponse())
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		kind := models.ConversationKind(row.Kind)
		summary := models.ConversationSummary{
			ID:                row.ConversationID,
			Kind:              kind,
			OtherParticipants: others[row.ConversationID],
			UnreadCount:       row.UnreadCount,
			UpdatedAt:         row.UpdatedAt,
			IsGroup:           kind == models.GroupConversation,
		}
		if summary.OtherParticipants == nil {
			summary.OtherParticipants = []models.UserResponse{}
		}
		summary.DisplayName = displayName(kind, row.Name, summary.OtherParticipants)
		summary.LastMessage = lastMessageFromRow(row)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetConversation returns the full hydrated view, or ErrNotFound when
// the conversation is missing, inactive, or the user is not in it.
func (s *ConversationQueryService) GetConversation(conversationID, userID uint) (*models.ConversationDetail, error) {
	conversation, err := s.conversationRepo.FindActiveForParticipant(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	participants, err := s.conversationRepo.GetParticipants(conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.ListByConversation(conversationID)
	if err != nil {
		return nil, err
	}

	detail := &models.ConversationDetail{
		ID:                conversation.ID,
		Kind:              conversation.Kind,
		OtherParticipants: []models.UserResponse{},
		Messages:          make([]models.MessageResponse, 0, len(messages)),
		UpdatedAt:         conversation.UpdatedAt,
		IsGroup:           conversation.Kind == models.GroupConversation,
	}
	for _, p := range participants {
		if conversation.AdminID != nil && p.UserID == *conversation.AdminID {
			info := p.User.ToSenderInfo()
			detail.Admin = &info
		}
		if p.UserID == userID {
			continue
		}
		detail.OtherParticipants = append(detail.OtherParticipants, p.User.ToResponse())
	}
	detail.DisplayName = displayName(conversation.Kind, conversation.Name, detail.OtherParticipants)
	for _, m := range messages {
		detail.Messages = append(detail.Messages, m.ToResponse())
	}
	return detail, nil
}

// ListNewerThan is the polling fetch: every message appended after the
// given id, or the whole log when afterMessageID is zero. Stateless;
// the client supplies its own high-water mark each call.
func (s *ConversationQueryService) ListNewerThan(conversationID, userID, afterMessageID uint) ([]models.MessageResponse, error) {
	if _, err := s.conversationRepo.FindActiveForParticipant(conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	messages, err := s.messageRepo.ListNewerThan(conversationID, afterMessageID)
	if err != nil {
		return nil, err
	}
	responses := make([]models.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, m.ToResponse())
	}
	return responses, nil
}

// ListContacts returns the active users a caller can start a
// conversation with.
func (s *ConversationQueryService) ListContacts(userID uint) ([]models.UserResponse, error) {
	users, err := s.userRepo.ListActiveExcept(userID)
	if err != nil {
		return nil, err
	}
	responses := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}
	return responses, nil
}

func displayName(kind models.ConversationKind, name string, others []models.UserResponse) string {
	if kind == models.GroupConversation {
		return name
	}
	if len(others) > 0 {
		return others[0].DisplayName
	}
	return ""
}

func lastMessageFromRow(row repository.ConversationSummaryRow) *models.MessageResponse {
	if !row.MessageID.Valid {
		return nil
	}
	var createdAt time.Time
	if row.MessageCreatedAt.Valid {
		createdAt = row.MessageCreatedAt.Time
	}
	return &models.MessageResponse{
		ID: uint(row.MessageID.Int64),
		Sender: models.SenderInfo{
			ID:          uint(row.MessageSenderID.Int64),
			DisplayName: row.SenderName.String,
			AvatarURL:   row.SenderAvatar.String,
		},
		Content:        row.MessageContent.String,
		Kind:           models.MessageKind(row.MessageKind.String),
		AttachmentURL:  row.MessageAttachmentURL.String,
		AttachmentName: row.MessageAttachmentName.String,
		CreatedAt:      createdAt,
		ReadBy:         []models.ReceiptResponse{},
	}
}
