package service

import (
	"sort"
	"sync"
	"time"

	"github.com/raushan728/studyhub-backend/internal/models"
	"github.com/raushan728/studyhub-backend/internal/repository"
	"gorm.io/gorm"
)

// Hand-written in-memory mocks. The message mock shares the
// conversation mock's mutex so Append and MarkConversationRead apply
// their derived updates atomically, mirroring the SQL transactions.

type MockUserRepository struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User)}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = uint(len(m.users) + 1)
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByIDs(ids []uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) ListActiveExcept(userID uint) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, u := range m.users {
		if u.ID != userID && u.IsActive {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

type MockConversationRepository struct {
	mu            sync.Mutex
	conversations map[uint]*models.Conversation
	participants  map[uint]map[uint]*models.ConversationParticipant
	nextID        uint

	users    *MockUserRepository
	messages *MockMessageRepository
}

func NewMockConversationRepository(users *MockUserRepository) *MockConversationRepository {
	return &MockConversationRepository{
		conversations: make(map[uint]*models.Conversation),
		participants:  make(map[uint]map[uint]*models.ConversationParticipant),
		nextID:        1,
		users:         users,
	}
}

func (m *MockConversationRepository) CreateOrGetIndividual(userA, userB uint) (*models.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.PairKey(userA, userB)
	for _, c := range m.conversations {
		if c.Kind == models.IndividualConversation && c.Active && c.PairKey != nil && *c.PairKey == key {
			copied := *c
			return &copied, false, nil
		}
	}

	now := time.Now()
	conversation := &models.Conversation{
		ID:        m.nextID,
		Kind:      models.IndividualConversation,
		PairKey:   &key,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextID++
	m.conversations[conversation.ID] = conversation
	m.participants[conversation.ID] = map[uint]*models.ConversationParticipant{
		userA: {ConversationID: conversation.ID, UserID: userA, JoinedAt: now},
		userB: {ConversationID: conversation.ID, UserID: userB, JoinedAt: now},
	}

	copied := *conversation
	return &copied, true, nil
}

func (m *MockConversationRepository) CreateGroup(conversation *models.Conversation, memberIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	conversation.ID = m.nextID
	m.nextID++
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	m.conversations[conversation.ID] = conversation

	members := make(map[uint]*models.ConversationParticipant, len(memberIDs))
	for _, uid := range memberIDs {
		members[uid] = &models.ConversationParticipant{
			ConversationID: conversation.ID,
			UserID:         uid,
			JoinedAt:       now,
		}
	}
	m.participants[conversation.ID] = members
	return nil
}

func (m *MockConversationRepository) FindActiveForParticipant(conversationID, userID uint) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findActiveForParticipantLocked(conversationID, userID)
}

func (m *MockConversationRepository) findActiveForParticipantLocked(conversationID, userID uint) (*models.Conversation, error) {
	c, ok := m.conversations[conversationID]
	if !ok || !c.Active {
		return nil, gorm.ErrRecordNotFound
	}
	if _, member := m.participants[conversationID][userID]; !member {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockConversationRepository) GetParticipants(conversationID uint) ([]models.ConversationParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ConversationParticipant
	for _, p := range m.participants[conversationID] {
		copied := *p
		if m.users != nil {
			if u, ok := m.users.users[p.UserID]; ok {
				copied.User = *u
			}
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MockConversationRepository) ListParticipantsByConversations(conversationIDs []uint) ([]models.ConversationParticipant, error) {
	var out []models.ConversationParticipant
	for _, id := range conversationIDs {
		part, err := m.GetParticipants(id)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func (m *MockConversationRepository) ListSummaries(userID uint) ([]repository.ConversationSummaryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []repository.ConversationSummaryRow
	for _, c := range m.conversations {
		if !c.Active {
			continue
		}
		p, member := m.participants[c.ID][userID]
		if !member {
			continue
		}
		row := repository.ConversationSummaryRow{
			ConversationID: c.ID,
			Kind:           string(c.Kind),
			Name:           c.Name,
			AdminID:        c.AdminID,
			UpdatedAt:      c.UpdatedAt,
			UnreadCount:    p.UnreadCount,
		}
		if m.messages != nil && c.LastMessageID != nil {
			if msg, ok := m.messages.messages[*c.LastMessageID]; ok {
				row.MessageID.Int64 = int64(msg.ID)
				row.MessageID.Valid = true
				row.MessageSenderID.Int64 = int64(msg.SenderID)
				row.MessageSenderID.Valid = true
				row.MessageContent.String = msg.Content
				row.MessageContent.Valid = true
				row.MessageKind.String = string(msg.Kind)
				row.MessageKind.Valid = true
				row.MessageAttachmentURL.String = msg.AttachmentURL
				row.MessageAttachmentURL.Valid = true
				row.MessageAttachmentName.String = msg.AttachmentName
				row.MessageAttachmentName.Valid = true
				row.MessageCreatedAt.Time = msg.CreatedAt
				row.MessageCreatedAt.Valid = true
				if m.users != nil {
					if u, ok := m.users.users[msg.SenderID]; ok {
						row.SenderName.String = u.Name
						row.SenderName.Valid = true
						row.SenderAvatar.String = u.Avatar
						row.SenderAvatar.Valid = true
					}
				}
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return rows[i].ConversationID > rows[j].ConversationID
	})
	return rows, nil
}

func (m *MockConversationRepository) Deactivate(conversationID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Active = false
	c.PairKey = nil
	c.UpdatedAt = time.Now()
	return nil
}

type MockMessageRepository struct {
	convs    *MockConversationRepository
	users    *MockUserRepository
	messages map[uint]*models.Message
	receipts map[uint]map[uint]time.Time // message id -> user id -> read at
	nextID   uint
}

func NewMockMessageRepository(convs *MockConversationRepository, users *MockUserRepository) *MockMessageRepository {
	m := &MockMessageRepository{
		convs:    convs,
		users:    users,
		messages: make(map[uint]*models.Message),
		receipts: make(map[uint]map[uint]time.Time),
		nextID:   1,
	}
	convs.messages = m
	return m
}

func (m *MockMessageRepository) Append(message *models.Message) error {
	m.convs.mu.Lock()
	defer m.convs.mu.Unlock()

	c, ok := m.convs.conversations[message.ConversationID]
	if !ok || !c.Active {
		return gorm.ErrRecordNotFound
	}

	message.ID = m.nextID
	m.nextID++
	message.CreatedAt = time.Now()
	stored := *message
	m.messages[stored.ID] = &stored

	lastID := stored.ID
	c.LastMessageID = &lastID
	c.UpdatedAt = stored.CreatedAt

	for uid, p := range m.convs.participants[message.ConversationID] {
		if uid != message.SenderID {
			p.UnreadCount++
		}
	}
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	m.convs.mu.Lock()
	defer m.convs.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.hydrateLocked(msg), nil
}

func (m *MockMessageRepository) hydrateLocked(msg *models.Message) *models.Message {
	copied := *msg
	if m.users != nil {
		if u, ok := m.users.users[msg.SenderID]; ok {
			copied.Sender = *u
		}
	}
	copied.ReadBy = nil
	for uid, at := range m.receipts[msg.ID] {
		copied.ReadBy = append(copied.ReadBy, models.MessageReceipt{MessageID: msg.ID, UserID: uid, ReadAt: at})
	}
	sort.Slice(copied.ReadBy, func(i, j int) bool { return copied.ReadBy[i].UserID < copied.ReadBy[j].UserID })
	return &copied
}

func (m *MockMessageRepository) ListByConversation(conversationID uint) ([]models.Message, error) {
	return m.listMessages(conversationID, 0)
}

func (m *MockMessageRepository) ListNewerThan(conversationID, afterMessageID uint) ([]models.Message, error) {
	return m.listMessages(conversationID, afterMessageID)
}

func (m *MockMessageRepository) listMessages(conversationID, afterMessageID uint) ([]models.Message, error) {
	m.convs.mu.Lock()
	defer m.convs.mu.Unlock()

	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.ID > afterMessageID {
			out = append(out, *m.hydrateLocked(msg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockMessageRepository) MarkConversationRead(conversationID, userID uint) error {
	m.convs.mu.Lock()
	defer m.convs.mu.Unlock()

	now := time.Now()
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if m.receipts[msg.ID] == nil {
			m.receipts[msg.ID] = make(map[uint]time.Time)
		}
		if _, read := m.receipts[msg.ID][userID]; !read {
			m.receipts[msg.ID][userID] = now
		}
	}
	if p, ok := m.convs.participants[conversationID][userID]; ok {
		p.UnreadCount = 0
	}
	return nil
}

// fixture wires the mocks and both services the way cmd/server does.
type fixture struct {
	users *MockUserRepository
	convs *MockConversationRepository
	msgs  *MockMessageRepository
	chat  *ChatService
	query *ConversationQueryService
}

func newFixture() *fixture {
	users := NewMockUserRepository()
	convs := NewMockConversationRepository(users)
	msgs := NewMockMessageRepository(convs, users)
	return &fixture{
		users: users,
		convs: convs,
		msgs:  msgs,
		chat:  NewChatService(convs, msgs, users),
		query: NewConversationQueryService(convs, msgs, users),
	}
}

func (f *fixture) addUser(id uint, name string) *models.User {
	u := &models.User{
		ID:       id,
		Name:     name,
		Email:    name + "@example.com",
		Avatar:   "https://example.com/" + name + ".jpg",
		Role:     "user",
		IsActive: true,
	}
	_ = f.users.Create(u)
	return u
}

func (f *fixture) unread(conversationID, userID uint) int {
	f.convs.mu.Lock()
	defer f.convs.mu.Unlock()
	if p, ok := f.convs.participants[conversationID][userID]; ok {
		return p.UnreadCount
	}
	return -1
}
