package telegram_bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"dashboard/internal/models"
	"dashboard/internal/repository"
)

const requestTimeout = 15 * time.Second

// Directory lists the organizations and students a chat can subscribe to.
type Directory interface {
	Schools(ctx context.Context) ([]models.School, error)
	Students(ctx context.Context) ([]models.Student, error)
}

// sender is the part of tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot lets parents and staff subscribe to a student's danger events and
// delivers the notifications.
type Bot struct {
	api       sender
	botAPI    *tgbotapi.BotAPI
	directory Directory
	subs      repository.SubscriptionRepository
	logger    *zap.Logger
}

// NewBot creates a new Telegram bot instance. The library's own log output
// goes to libLog.
func NewBot(token string, directory Directory, subs repository.SubscriptionRepository, libLog *logrus.Logger, logger *zap.Logger) (*Bot, error) {
	if err := tgbotapi.SetLogger(libLog); err != nil {
		return nil, fmt.Errorf("failed to set Telegram logger: %w", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:       botAPI,
		botAPI:    botAPI,
		directory: directory,
		subs:      subs,
		logger:    logger,
	}, nil
}

// Start begins listening for updates from Telegram
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.botAPI.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.botAPI.StopReceivingUpdates()
			return nil
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start":
		b.handleStartCommand(message)
	case "subscribe":
		b.handleSubscribeCommand(ctx, message)
	case "subscriptions":
		b.handleSubscriptionsCommand(ctx, message)
	case "unsubscribe":
		b.handleUnsubscribeCommand(ctx, message)
	case "help":
		b.handleHelpCommand(message)
	default:
		b.sendMessage(message.Chat.ID, "Неизвестная команда. Используйте /help для помощи.")
	}
}

func (b *Bot) handleStartCommand(message *tgbotapi.Message) {
	name := "друг"
	if message.From != nil && message.From.FirstName != "" {
		name = message.From.FirstName
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Я бот системы TIREK. Я сообщаю об опасных событиях с участием ваших детей: драках, курении и оружии.\n\n"+
			"• Подписаться на уведомления: /subscribe\n"+
			"• Мои подписки: /subscriptions\n"+
			"• Помощь: /help",
		name,
	)
	b.sendMessage(message.Chat.ID, welcomeText)
}

func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	helpText := "📚 Помощь:\n\n" +
		"/start - Приветственное сообщение\n" +
		"/subscribe - Выбрать организацию и ученика\n" +
		"/subscriptions - Текущие подписки\n" +
		"/unsubscribe - Отписаться от всех уведомлений\n" +
		"/help - Эта справка"
	b.sendMessage(message.Chat.ID, helpText)
}

// handleSubscribeCommand offers the organizations as inline buttons.
func (b *Bot) handleSubscribeCommand(ctx context.Context, message *tgbotapi.Message) {
	schools, err := b.directory.Schools(ctx)
	if err != nil {
		b.logger.Error("Failed to get organizations", zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Не удалось загрузить список организаций. Попробуйте позже.")
		return
	}
	if len(schools) == 0 {
		b.sendMessage(message.Chat.ID, "Организации не найдены.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(schools))
	for _, school := range schools {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(school.OrgName, fmt.Sprintf("org:%d", school.ID)),
		))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "Выберите организацию:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send organizations", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) handleSubscriptionsCommand(ctx context.Context, message *tgbotapi.Message) {
	subs, err := b.subs.GetByChatID(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to get subscriptions", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Не удалось получить подписки.")
		return
	}
	b.sendMessage(message.Chat.ID, formatSubscriptions(subs))
}

func (b *Bot) handleUnsubscribeCommand(ctx context.Context, message *tgbotapi.Message) {
	n, err := b.subs.DeleteByChatID(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to delete subscriptions", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Не удалось отписаться.")
		return
	}
	if n == 0 {
		b.sendMessage(message.Chat.ID, "У вас нет подписок.")
		return
	}
	b.sendMessage(message.Chat.ID, "Вы отписались от всех уведомлений.")
}

// formatSubscriptions groups a chat's subscriptions by student.
func formatSubscriptions(subs []*models.Subscription) string {
	if len(subs) == 0 {
		return "У вас нет подписок. Используйте /subscribe."
	}

	byStudent := make(map[string][]string)
	for _, sub := range subs {
		byStudent[sub.StudentName] = append(byStudent[sub.StudentName], sub.EventType.Label())
	}

	names := make([]string, 0, len(byStudent))
	for name := range byStudent {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("🔔 Ваши подписки:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "\n• %s: %s", name, strings.Join(byStudent[name], ", "))
	}
	return sb.String()
}

// handleCallbackQuery processes callback queries from inline buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	b.logger.Info("Received callback query",
		zap.String("data", query.Data),
		zap.Int64("user_id", query.From.ID),
	)

	// Acknowledge the callback query
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error("Failed to send callback response", zap.Error(err))
	}

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID

	// Callback data: "org:<org_id>" or "student:<student_id>:<org_id>"
	parts := strings.Split(query.Data, ":")
	switch {
	case len(parts) == 2 && parts[0] == "org":
		orgID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			break
		}
		b.handleOrganizationSelected(ctx, query.Message, orgID)
		return
	case len(parts) == 3 && parts[0] == "student":
		studentID, err1 := strconv.ParseInt(parts[1], 10, 64)
		orgID, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			break
		}
		b.handleStudentSelected(ctx, chatID, studentID, orgID)
		return
	}

	b.logger.Error("Failed to parse callback data: invalid format", zap.String("data", query.Data))
	b.sendMessage(chatID, "❌ Ошибка обработки запроса")
}

// handleOrganizationSelected replaces the organization list with the
// students to choose from.
func (b *Bot) handleOrganizationSelected(ctx context.Context, message *tgbotapi.Message, orgID int64) {
	students, err := b.directory.Students(ctx)
	if err != nil {
		b.logger.Error("Failed to get students", zap.Int64("organization_id", orgID), zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Не удалось загрузить список учеников.")
		return
	}
	if len(students) == 0 {
		b.sendMessage(message.Chat.ID, "Ученики не найдены.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(students))
	for _, student := range students {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(student.Name, fmt.Sprintf("student:%d:%d", student.ID, orgID)),
		))
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(
		message.Chat.ID,
		message.MessageID,
		"Выберите ученика:",
		tgbotapi.NewInlineKeyboardMarkup(rows...),
	)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message", zap.Error(err))
	}
}

// handleStudentSelected subscribes the chat to every danger event type of
// the student. Existing subscriptions are kept as they are.
func (b *Bot) handleStudentSelected(ctx context.Context, chatID, studentID, orgID int64) {
	students, err := b.directory.Students(ctx)
	if err != nil {
		b.logger.Error("Failed to get students", zap.Error(err))
		b.sendMessage(chatID, "❌ Не удалось оформить подписку.")
		return
	}

	var student *models.Student
	for i := range students {
		if students[i].ID == studentID {
			student = &students[i]
			break
		}
	}
	if student == nil {
		b.sendMessage(chatID, "❌ Ученик не найден.")
		return
	}

	created := 0
	for _, eventType := range models.DangerEventTypes {
		ok, err := b.subs.Create(ctx, &models.Subscription{
			ChatID:         chatID,
			StudentID:      student.ID,
			StudentName:    student.Name,
			OrganizationID: orgID,
			EventType:      eventType,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			b.logger.Error("Failed to create subscription", zap.Int64("chat_id", chatID), zap.Error(err))
			b.sendMessage(chatID, "❌ Не удалось оформить подписку.")
			return
		}
		if ok {
			created++
		}
	}

	b.logger.Info("Subscription created",
		zap.Int64("chat_id", chatID),
		zap.Int64("student_id", student.ID),
		zap.Int("new", created),
	)
	b.sendMessage(chatID, fmt.Sprintf("✅ Вы подписались на уведомления об ученике %s. Мы сообщим о важных событиях.", student.Name))
}

// NotifyEvent sends an event alert to one chat.
func (b *Bot) NotifyEvent(_ context.Context, chatID int64, event models.Event) error {
	text := fmt.Sprintf(
		"⚠️ ВНИМАНИЕ! Обнаружено новое событие!\n\n"+
			"Ученик: %s\n"+
			"Тип события: %s\n"+
			"Дата и время: %s\n"+
			"Камера: %s",
		event.StudentName,
		event.Type.Label(),
		event.Timestamp.Display(),
		event.Camera(),
	)

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send event notification", zap.Int64("chat_id", chatID), zap.Int64("event_id", event.ID), zap.Error(err))
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// sendMessage is a helper to send a simple text message
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
