package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zgai/chatlibrary/internal/cache"
	"github.com/zgai/chatlibrary/internal/models"
	"github.com/zgai/chatlibrary/internal/providers/llm"
	pgrepo "github.com/zgai/chatlibrary/internal/repositories/postgres"
	"github.com/zgai/chatlibrary/internal/utils"
	"github.com/zgai/chatlibrary/internal/vectorstore"
)

const titleMaxRunes = 20

type ChatService interface {
	// Chat runs one retrieval-augmented turn. The returned channels follow
	// the provider contract: fragments until natural completion, at most
	// one error, buffered before the fragment channel closes. The
	// synchronous error covers validation and the pre-stream writes
	// (conversation row, user message).
	Chat(ctx context.Context, prompt, conversationID, userID string) (<-chan string, <-chan error, error)

	NewConversation(ctx context.Context, userID, title string) (*models.ConversationHistory, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationHistory, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

type chatService struct {
	convos    pgrepo.ConversationRepository
	retrieval cache.RetrievalCache
	store     vectorstore.Store
	provider  llm.Provider
	log       *logrus.Logger

	topK      int
	threshold float32
}

func NewChatService(
	convos pgrepo.ConversationRepository,
	retrieval cache.RetrievalCache,
	store vectorstore.Store,
	provider llm.Provider,
	log *logrus.Logger,
	topK int,
	threshold float32,
) ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &chatService{
		convos:    convos,
		retrieval: retrieval,
		store:     store,
		provider:  provider,
		log:       log,
		topK:      topK,
		threshold: threshold,
	}
}

func (s *chatService) Chat(ctx context.Context, prompt, conversationID, userID string) (<-chan string, <-chan error, error) {
	const op = "ChatService.Chat"

	if prompt == "" || conversationID == "" || userID == "" {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "prompt, conversation_id and user_id are required", nil)
	}

	now := time.Now().UTC()

	// Lazy conversation creation keyed by the caller-supplied id.
	if _, err := s.convos.GetHistory(ctx, conversationID); err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			return nil, nil, utils.E(utils.CodeInternal, op, "failed to load conversation", err)
		}
		h := &models.ConversationHistory{
			ID:        conversationID,
			UserID:    userID,
			Title:     deriveTitle(prompt),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.convos.InsertHistory(ctx, h); err != nil {
			return nil, nil, utils.E(utils.CodeInternal, op, "failed to create conversation", err)
		}
	}

	userMsg := &models.ConversationMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           models.RoleUser,
		Content:        prompt,
		CreatedAt:      now,
	}
	if err := s.convos.InsertMessage(ctx, userMsg); err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to persist user message", err)
	}
	if err := s.convos.TouchHistory(ctx, conversationID, now); err != nil {
		s.log.WithError(err).WithField("conversation_id", conversationID).Warn("failed to touch conversation")
	}

	out := make(chan string, 32)
	errs := make(chan error, 1)
	go s.streamTurn(ctx, prompt, conversationID, out, errs)
	return out, errs, nil
}

// streamTurn runs retrieval, the completion stream and the assistant-turn
// persistence. The user message is already durable by the time it starts.
func (s *chatService) streamTurn(ctx context.Context, prompt, conversationID string, out chan<- string, errs chan<- error) {
	defer close(errs)
	log := s.log.WithFields(logrus.Fields{"component": "chat", "conversation_id": conversationID})

	passages, err := s.retrieval.GetOrRetrieve(ctx, prompt, func(ctx context.Context, q string) ([]vectorstore.Passage, error) {
		return s.store.Search(ctx, q, s.topK, s.threshold)
	})
	if err != nil {
		// A dead index degrades chat to general knowledge, it does not end
		// the turn.
		log.WithError(err).Warn("retrieval failed, answering without context")
		passages = nil
	}

	chunks, perrs := s.provider.StreamChat(ctx, systemPrompt(passages), prompt, conversationID)

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
		select {
		case out <- chunk:
		case <-ctx.Done():
			close(out)
			return
		}
	}
	if err := <-perrs; err != nil {
		log.WithError(err).Error("completion stream failed")
		// Buffer the error before closing out so the caller can read it
		// the moment the fragment channel closes.
		errs <- err
		close(out)
		return
	}
	if ctx.Err() != nil {
		close(out)
		return
	}

	// Completion signal first, persistence after; the caller never waits
	// for this write and a failure only loses history, not the answer.
	close(out)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	assistantMsg := &models.ConversationMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        full.String(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.convos.InsertMessage(pctx, assistantMsg); err != nil {
		log.WithError(err).Error("failed to persist assistant message")
	}
}

func systemPrompt(passages []vectorstore.Passage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Content != "" {
			texts = append(texts, p.Content)
		}
	}

	var b strings.Builder
	b.WriteString("You are the assistant of a personal document library. ")
	b.WriteString("Answer the user's question from the reference passages below. ")
	b.WriteString("If the passages are empty or irrelevant, say explicitly that no relevant information was found in the library, then answer from general knowledge.\n\n")
	b.WriteString("Reference passages:\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	return b.String()
}

func deriveTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes]) + "..."
	}
	return prompt
}

func (s *chatService) NewConversation(ctx context.Context, userID, title string) (*models.ConversationHistory, error) {
	const op = "ChatService.NewConversation"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if title == "" {
		title = "New conversation"
	}
	now := time.Now().UTC()
	h := &models.ConversationHistory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     deriveTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.convos.InsertHistory(ctx, h); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create conversation", err)
	}
	return h, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID string) ([]models.ConversationHistory, error) {
	const op = "ChatService.ListConversations"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.convos.ListHistories(ctx, userID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	return rows, nil
}

func (s *chatService) ListMessages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error) {
	const op = "ChatService.ListMessages"

	if conversationID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "conversation_id is required", nil)
	}
	rows, err := s.convos.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return rows, nil
}

func (s *chatService) DeleteConversation(ctx context.Context, conversationID string) error {
	const op = "ChatService.DeleteConversation"

	if _, err := s.convos.GetHistory(ctx, conversationID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "conversation not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load conversation", err)
	}
	if err := s.convos.DeleteMessages(ctx, conversationID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete messages", err)
	}
	if err := s.convos.DeleteHistory(ctx, conversationID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete conversation", err)
	}
	return nil
}
