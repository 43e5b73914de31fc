package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/raushan728/studyhub-backend/internal/cache"
	"github.com/raushan728/studyhub-backend/internal/httpx"
	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/raushan728/studyhub-backend/internal/service"
)

type ChatHandler struct {
	chatService       *service.ChatService
	queryService      *service.ConversationQueryService
	conversationCache *cache.ConversationCache
}

func NewChatHandler(
	chatService *service.ChatService,
	queryService *service.ConversationQueryService,
	conversationCache *cache.ConversationCache,
) *ChatHandler {
	return &ChatHandler{
		chatService:       chatService,
		queryService:      queryService,
		conversationCache: conversationCache,
	}
}

func serviceError(c *fiber.Ctx, err error, internalCode string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpx.NotFound(c, "chat_not_found", "Chat not found")
	case errors.Is(err, service.ErrInvalidArgument):
		return httpx.BadRequest(c, "invalid_argument", "Invalid request")
	case errors.Is(err, service.ErrForbidden):
		return httpx.Forbidden(c, "forbidden", "Not allowed")
	default:
		return httpx.Internal(c, internalCode)
	}
}

func chatIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid chat id")
	}
	return uint(id), nil
}

// ListChats returns the caller's conversation list, newest activity
// first, served from cache when fresh.
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if cached, ok := h.conversationCache.GetList(userID); ok {
		return c.JSON(fiber.Map{"chats": cached, "count": len(cached)})
	}

	summaries, err := h.queryService.ListForUser(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_chats_failed")
	}
	_ = h.conversationCache.SetList(userID, summaries)

	return c.JSON(fiber.Map{"chats": summaries, "count": len(summaries)})
}

type CreateChatRequest struct {
	ParticipantID uint `json:"participantId"`
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if req.ParticipantID == 0 {
		return httpx.BadRequest(c, "missing_participant", "Participant ID is required")
	}

	conversation, err := h.chatService.CreateIndividual(userID, req.ParticipantID)
	if err != nil {
		return serviceError(c, err, "create_chat_failed")
	}

	h.conversationCache.InvalidateLists([]uint{userID, req.ParticipantID})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"chatId":  conversation.ID,
	})
}

type CreateGroupChatRequest struct {
	ChatName       string `json:"chatName"`
	ParticipantIDs []uint `json:"participantIds"`
}

func (h *ChatHandler) CreateGroupChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req CreateGroupChatRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if req.ChatName == "" || len(req.ParticipantIDs) == 0 {
		return httpx.BadRequest(c, "missing_fields", "Chat name and participants are required")
	}

	conversation, err := h.chatService.CreateGroup(userID, req.ChatName, req.ParticipantIDs)
	if err != nil {
		return serviceError(c, err, "create_group_failed")
	}

	if ids, err := h.chatService.ParticipantIDs(conversation.ID); err == nil {
		h.conversationCache.InvalidateLists(ids)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"chatId":  conversation.ID,
	})
}

// GetChat returns the full conversation and marks it read for the
// caller. Opening a chat is reading it; the two calls stay separate so
// each side keeps its own contract.
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	detail, err := h.queryService.GetConversation(chatID, userID)
	if err != nil {
		return serviceError(c, err, "fetch_chat_failed")
	}

	if err := h.chatService.MarkRead(chatID, userID); err != nil {
		return serviceError(c, err, "mark_read_failed")
	}
	_ = h.conversationCache.InvalidateList(userID)

	return c.JSON(detail)
}

type SendMessageRequest struct {
	Content string             `json:"content"`
	Kind    models.MessageKind `json:"kind"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.chatService.AppendMessage(chatID, userID, req.Content, req.Kind, nil)
	if err != nil {
		return serviceError(c, err, "send_message_failed")
	}

	if ids, err := h.chatService.ParticipantIDs(chatID); err == nil {
		h.conversationCache.InvalidateLists(ids)
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

// GetChatMessages serves the polling loop: ?after=<id> returns only
// messages appended past the client's high-water mark.
func (h *ChatHandler) GetChatMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var after uint
	if afterStr := c.Query("after"); afterStr != "" {
		parsed, err := strconv.ParseUint(afterStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_after", "Invalid after parameter")
		}
		after = uint(parsed)
	}

	messages, err := h.queryService.ListNewerThan(chatID, userID, after)
	if err != nil {
		return serviceError(c, err, "fetch_messages_failed")
	}

	return c.JSON(fiber.Map{"messages": messages, "count": len(messages)})
}

func (h *ChatHandler) MarkChatRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	if err := h.chatService.MarkRead(chatID, userID); err != nil {
		return serviceError(c, err, "mark_read_failed")
	}
	_ = h.conversationCache.InvalidateList(userID)

	return c.JSON(fiber.Map{"success": true})
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	// Invalidate both members after the delete; resolve them first.
	ids, _ := h.chatService.ParticipantIDs(chatID)

	if err := h.chatService.Deactivate(chatID, userID); err != nil {
		return serviceError(c, err, "delete_chat_failed")
	}
	h.conversationCache.InvalidateLists(ids)

	return c.JSON(fiber.Map{"success": true, "message": "Chat deleted successfully"})
}

// GetChatUsers lists the active users the caller can start a chat
// with.
func (h *ChatHandler) GetChatUsers(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	users, err := h.queryService.ListContacts(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_users_failed")
	}
	return c.JSON(fiber.Map{"success": true, "users": users})
}
