package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/mentor_scheduler/internal/controller/state"
	"github.com/Freeeeeet/mentor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// dialogCleanupInterval как часто забываются брошенные диалоги
const dialogCleanupInterval = 5 * time.Minute

type BotController struct {
	bot          *bot.Bot
	handlers     *handlers.Handlers
	stateManager *state.Manager
	logger       *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService *service.UserService,
	availabilityService *service.AvailabilityService,
	slotService *service.SlotService,
	bookingService *service.BookingService,
	loc *time.Location,
	logger *zap.Logger,
) *BotController {
	stateManager := state.NewManager(state.DefaultTTL)

	cmdHandlers := handlers.NewHandlers(
		userService,
		availabilityService,
		slotService,
		bookingService,
		stateManager,
		loc,
		logger,
	)

	return &BotController{
		bot:          botInstance,
		handlers:     cmdHandlers,
		stateManager: stateManager,
		logger:       logger,
	}
}

// RegisterHandlers регистрирует обработчик команд и меню бота.
// Все команды идут через один обработчик, маршрутизация внутри handlers.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, c.handlers.HandleCommand)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handlers.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// DefaultHandler получает сообщения без команды (ответы в диалогах).
// Передаётся в bot.WithDefaultHandler при создании бота.
func (c *BotController) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.handlers.HandleTextMessage(ctx, b, update)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "mentors", Description: "👥 Список менторов"},
		{Command: "slots", Description: "🗓 Свободные слоты ментора"},
		{Command: "book", Description: "📝 Записаться на занятие"},
		{Command: "mybookings", Description: "📅 Мои записи"},
		{Command: "cancelbooking", Description: "🚫 Отменить запись"},
		{Command: "becomementor", Description: "🎓 Стать ментором"},
		{Command: "availability", Description: "🕒 Окна доступности"},
		{Command: "setavailability", Description: "✏️ Задать окна доступности (ментор)"},
		{Command: "requests", Description: "📩 Заявки на занятия (ментор)"},
		{Command: "cancel", Description: "↩️ Прервать диалог"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")

	go c.cleanupDialogs(ctx)

	c.bot.Start(ctx)
	return nil
}

func (c *BotController) cleanupDialogs(ctx context.Context) {
	ticker := time.NewTicker(dialogCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.stateManager.Cleanup(); removed > 0 {
				c.logger.Debug("Expired dialogs removed", zap.Int("count", removed))
			}
		}
	}
}
