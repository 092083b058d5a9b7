package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/handlers"
	"github.com/Freeeeeet/medbooking_bot/internal/controller/state"
	"github.com/Freeeeeet/medbooking_bot/internal/service"
	"github.com/Freeeeeet/medbooking_bot/internal/service/appointments"
	"github.com/Freeeeeet/medbooking_bot/internal/service/booking"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

// Services зависимости контроллера
type Services struct {
	Users        *service.UserService
	Sessions     *service.SessionService
	Booking      *booking.Manager
	Appointments *appointments.Manager
	StateStore   state.Store
	Location     *time.Location
}

func NewBotController(botInstance *bot.Bot, services Services, logger *zap.Logger) *BotController {
	stateStore := services.StateStore
	if stateStore == nil {
		stateStore = state.NewManager()
	}

	// Создаём обработчики команд
	cmdHandlers := handlers.NewHandlers(
		services.Users,
		services.Sessions,
		services.Booking,
		services.Appointments,
		stateStore,
		services.Location,
		logger,
	)

	// Создаём callback handler с зависимостями
	callbackHandler := callbacks.NewHandler(&callbacktypes.Handler{
		UserService:          services.Users,
		SessionService:       services.Sessions,
		Booking:              services.Booking,
		Appointments:         services.Appointments,
		StateManager:         stateStore,
		Location:             services.Location,
		Logger:               logger,
		HandleBook:           cmdHandlers.HandleBook,
		HandleMyAppointments: cmdHandlers.HandleMyAppointments,
	})

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Регистрируем команды
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/login", bot.MatchTypeExact, c.handlers.HandleLogin)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/logout", bot.MatchTypeExact, c.handlers.HandleLogout)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.handlers.HandleBook)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/myappointments", bot.MatchTypeExact, c.handlers.HandleMyAppointments)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/agenda", bot.MatchTypeExact, c.handlers.HandleAgenda)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Обработчик текстовых сообщений (для диалогов с состояниями)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "book", Description: "🩺 Записаться к врачу"},
		{Command: "myappointments", Description: "📋 Мои записи"},
		{Command: "agenda", Description: "🗓 Записи на неделю"},
		{Command: "login", Description: "🔐 Войти в кабинет пациента"},
		{Command: "logout", Description: "👋 Выйти"},
		{Command: "cancel", Description: "❌ Отменить текущее действие"},
		{Command: "help", Description: "❓ Справка по командам"},
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

// Start запускает бота и блокируется до отмены контекста
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
