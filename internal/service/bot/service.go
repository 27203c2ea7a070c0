package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/internal/config"
	"github.com/otabekdev/restockbot/internal/domain/models"
	mongorepo "github.com/otabekdev/restockbot/internal/repository/mongodb"
	sheetsrepo "github.com/otabekdev/restockbot/internal/repository/sheets"
	"github.com/otabekdev/restockbot/internal/session"
	"github.com/otabekdev/restockbot/pkg/clients/telegram"
)

// Service describes the operations the HTTP layer can perform.
type Service interface {
	HandleUpdate(ctx context.Context, update models.Update) error
}

// TelegramService drives the replenishment dialogue over the Telegram Bot
// API: it verifies senders against the allow-list, converts updates into
// session events, and renders the machine's replies.
type TelegramService struct {
	cfg       config.TelegramConfig
	client    telegram.Client
	sessions  *session.Manager
	allowList sheetsrepo.Repository
	activity  mongorepo.Repository
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	verified map[int64]string // chat ID -> normalized phone number
}

// NewTelegramService wires a new service instance.
func NewTelegramService(
	cfg config.TelegramConfig,
	client telegram.Client,
	sessions *session.Manager,
	allowList sheetsrepo.Repository,
	activity mongorepo.Repository,
	logger *zap.Logger,
) *TelegramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramService{
		cfg:       cfg,
		client:    client,
		sessions:  sessions,
		allowList: allowList,
		activity:  activity,
		logger:    logger,
		now:       time.Now,
		verified:  make(map[int64]string),
	}
}

// HandleUpdate processes one inbound webhook update.
func (s *TelegramService) HandleUpdate(ctx context.Context, update models.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return s.handleCallback(ctx, *update.CallbackQuery)
	case update.Message != nil:
		return s.handleMessage(ctx, *update.Message)
	default:
		// Edited messages, channel posts and similar are not part of the
		// dialogue; never silently advance a session because of them.
		return nil
	}
}

func (s *TelegramService) handleMessage(ctx context.Context, msg models.Message) error {
	chatID := msg.Chat.ID

	switch {
	case msg.Contact != nil:
		return s.handleContact(ctx, chatID, msg)
	case strings.HasPrefix(msg.Text, "/"):
		return s.handleCommand(ctx, chatID, msg)
	}

	if !s.isVerified(chatID) {
		return s.askForContact(ctx, chatID)
	}

	machine := s.sessions.Get(chatID)

	var event session.Event
	switch {
	case msg.Document != nil:
		s.recordActivity(ctx, chatID, msg, "file_uploaded")
		data, err := s.client.DownloadDocument(ctx, msg.Document.FileID)
		if err != nil {
			s.logger.Error("failed to download document", zap.Error(err), zap.Int64("chat_id", chatID))
			return s.sendText(ctx, chatID, "Не удалось загрузить файл. Попробуйте отправить его еще раз.")
		}
		event = session.FileEvent{Name: msg.Document.FileName, Data: data}
	default:
		event = session.TextEvent{Text: msg.Text}
	}

	return s.render(ctx, chatID, machine.Handle(event))
}

func (s *TelegramService) handleCallback(ctx context.Context, query models.CallbackQuery) error {
	if err := s.client.AnswerCallbackQuery(ctx, query.ID); err != nil {
		s.logger.Warn("failed to answer callback query", zap.Error(err))
	}

	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID

	if !s.isVerified(chatID) {
		return s.askForContact(ctx, chatID)
	}

	machine := s.sessions.Get(chatID)
	return s.render(ctx, chatID, machine.Handle(session.ChoiceEvent{ID: query.Data}))
}

func (s *TelegramService) handleCommand(ctx context.Context, chatID int64, msg models.Message) error {
	command, args := splitCommand(msg.Text)

	if reply, handled, err := s.handleAdminCommand(ctx, chatID, command, args); handled {
		if err != nil {
			return err
		}
		if reply == "" {
			return nil
		}
		return s.sendText(ctx, chatID, reply)
	}

	switch command {
	case "/start":
		s.recordActivity(ctx, chatID, msg, "started")
		if !s.isVerified(chatID) {
			return s.askForContact(ctx, chatID)
		}
		machine := s.sessions.Get(chatID)
		return s.render(ctx, chatID, machine.Handle(session.RestartEvent{}))
	case "/cancel":
		s.recordActivity(ctx, chatID, msg, "cancelled")
		machine := s.sessions.Get(chatID)
		return s.render(ctx, chatID, machine.Handle(session.CancelEvent{}))
	case "/help":
		return s.sendText(ctx, chatID, "Инструкция:\n1. Поделитесь номером телефона.\n2. Отправьте Excel файл с остатками.\n3. Следуйте подсказкам бота.")
	default:
		return s.sendText(ctx, chatID, "Неизвестная команда. Доступны: /start, /cancel, /help.")
	}
}

func (s *TelegramService) handleContact(ctx context.Context, chatID int64, msg models.Message) error {
	phone := sheetsrepo.NormalizePhone(msg.Contact.PhoneNumber)
	s.recordActivity(ctx, chatID, msg, "contact_shared")

	allowed, err := s.allowList.Contains(ctx, phone)
	if err != nil {
		s.logger.Error("allow-list lookup failed", zap.Error(err), zap.Int64("chat_id", chatID))
		return s.sendText(ctx, chatID, "Не удалось проверить номер. Попробуйте позже.")
	}

	if !allowed {
		s.logger.Warn("unauthorized phone number", zap.Int64("chat_id", chatID))
		machine := s.sessions.Get(chatID)
		return s.render(ctx, chatID, machine.Deny())
	}

	s.mu.Lock()
	s.verified[chatID] = phone
	s.mu.Unlock()

	machine := s.sessions.Get(chatID)
	return s.render(ctx, chatID, machine.Handle(session.RestartEvent{}))
}

func (s *TelegramService) askForContact(ctx context.Context, chatID int64) error {
	return s.sendText(ctx, chatID, "Пожалуйста, поделитесь своим номером телефона (вложение → Контакт) для проверки доступа.")
}

// render delivers a machine reply back to the operator: prompt text with
// optional choices, then the workbook attachment when present.
func (s *TelegramService) render(ctx context.Context, chatID int64, reply session.Reply) error {
	if reply.State.Terminal() {
		s.logger.Info("session reached terminal state",
			zap.Int64("chat_id", chatID),
			zap.String("state", string(reply.State)))
		if reply.State == session.StateDone {
			s.recordActivityEvent(ctx, chatID, "completed")
		}
	}

	if reply.Text != "" {
		req := telegram.SendMessageRequest{ChatID: chatID, Text: reply.Text}
		for _, choice := range reply.Choices {
			req.Buttons = append(req.Buttons, telegram.InlineButton{
				Text:         choice.Label,
				CallbackData: choice.ID,
			})
		}
		if err := s.client.SendMessage(ctx, req); err != nil {
			return fmt.Errorf("send prompt: %w", err)
		}
	}

	if reply.Document != nil {
		err := s.client.SendDocument(ctx, telegram.SendDocumentRequest{
			ChatID:   chatID,
			FileName: reply.Document.Name,
			Caption:  reply.Document.Caption,
			Data:     reply.Document.Data,
		})
		if err != nil {
			return fmt.Errorf("send workbook: %w", err)
		}
	}

	return nil
}

func (s *TelegramService) sendText(ctx context.Context, chatID int64, text string) error {
	return s.client.SendMessage(ctx, telegram.SendMessageRequest{ChatID: chatID, Text: text})
}

func (s *TelegramService) isVerified(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verified[chatID]
	return ok
}

func (s *TelegramService) verifiedPhone(chatID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified[chatID]
}

func (s *TelegramService) recordActivity(ctx context.Context, chatID int64, msg models.Message, event string) {
	record := models.ActivityRecord{
		ChatID:      chatID,
		PhoneNumber: s.verifiedPhone(chatID),
		Event:       event,
		At:          s.now().UTC(),
	}
	if msg.From != nil {
		record.Username = msg.From.Username
	}
	if err := s.activity.RecordActivity(ctx, record); err != nil {
		// The activity log is best-effort; never block the dialogue on it.
		s.logger.Warn("failed to record activity", zap.Error(err))
	}
}

func (s *TelegramService) recordActivityEvent(ctx context.Context, chatID int64, event string) {
	record := models.ActivityRecord{
		ChatID:      chatID,
		PhoneNumber: s.verifiedPhone(chatID),
		Event:       event,
		At:          s.now().UTC(),
	}
	if err := s.activity.RecordActivity(ctx, record); err != nil {
		s.logger.Warn("failed to record activity", zap.Error(err))
	}
}

func splitCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}
