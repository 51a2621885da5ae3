package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"soil-health-agent/agent"
	"soil-health-agent/config"
	"soil-health-agent/metrics"
	"soil-health-agent/tools"
)

// Each chat may start one agent run every 20 seconds, with a burst of 3.
const (
	chatRunsPerSecond = rate.Limit(1.0 / 20.0)
	chatRunBurst      = 3
)

// chatLimiter keeps one token bucket per chat.
type chatLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newChatLimiter(r rate.Limit, burst int) *chatLimiter {
	return &chatLimiter{
		limiters: make(map[int64]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (l *chatLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[chatID]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[chatID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// soilBot turns Telegram messages into agent runs.
type soilBot struct {
	agent           *agent.Agent
	limiter         *chatLimiter
	defaultLocation string
	provider        string
	logger          *slog.Logger
}

func runTelegram(ctx context.Context, cfg *config.Config, registry *tools.Registry, logger *slog.Logger, m *metrics.Metrics) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	model, err := agent.NewModel(ctx, cfg, logger, m)
	if err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}

	logger = logger.With("component", "telegram")
	logger.Info("authorized", "account", bot.Self.UserName, "tools", registry.Names())

	handler := &soilBot{
		agent:           agent.New(model, registry, agent.Options{Logger: logger, Metrics: m}),
		limiter:         newChatLimiter(chatRunsPerSecond, chatRunBurst),
		defaultLocation: cfg.Location,
		provider:        model.Provider(),
		logger:          logger,
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			logger.Info("bot stopped")
			return nil
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			go handler.handleMessage(ctx, bot, update.Message)
		}
	}
}

func (b *soilBot) handleMessage(ctx context.Context, bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, b.reply(ctx, message))
	msg.ReplyToMessageID = message.MessageID

	if _, err := bot.Send(msg); err != nil {
		b.logger.Error("sending message", "chat_id", message.Chat.ID, "err", err)
	}
}

// reply computes the answer to one incoming message.
func (b *soilBot) reply(ctx context.Context, message *tgbotapi.Message) string {
	user := ""
	if message.From != nil {
		user = message.From.UserName
	}
	b.logger.Info("message", "user", user, "chat_id", message.Chat.ID, "command", message.Command())

	switch message.Command() {
	case "start":
		return "👋 Hello! I'm a soil health assistant powered by " + b.provider + ".\n\n" +
			"I combine soil nutrient readings with current weather to suggest how to improve your soil.\n\n" +
			"Try /soil Mancherial or /help."

	case "help":
		return "Available commands:\n" +
			"/start - Start the bot\n" +
			"/help - Show this help message\n" +
			"/soil <place> - Soil health recommendations for a place\n\n" +
			"Or just ask me things like:\n" +
			"• \"Is it a good week to add compost in Pune?\"\n" +
			"• \"What does low potassium mean for paddy?\""

	case "soil":
		location := strings.TrimSpace(message.CommandArguments())
		if location == "" {
			location = b.defaultLocation
		}
		if !b.limiter.Allow(message.Chat.ID) {
			return "⏳ Slow down a little, I'm still working on your last request."
		}
		result, err := b.agent.Run(ctx, location)
		if err != nil {
			b.logger.Error("agent run failed", "location", location, "err", err)
			return "Sorry, I couldn't analyse the soil for " + location + ". Please try again later."
		}
		return result.Output

	case "":
		if strings.TrimSpace(message.Text) == "" {
			return "Send me a place name with /soil, or ask a question."
		}
		if !b.limiter.Allow(message.Chat.ID) {
			return "⏳ Slow down a little, I'm still working on your last request."
		}
		response, err := b.agent.Chat(ctx, message.Text)
		if err != nil {
			b.logger.Error("agent chat failed", "err", err)
			return "Sorry, I couldn't process that. Please try again later."
		}
		return response

	default:
		return "Unknown command. Try /help"
	}
}
