package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const maxMessageLen = 3800

type Handlers struct {
	userUC  *usecase.UserUsecase
	alertUC *usecase.AlertUsecase
	logger  *zap.Logger
}

func NewHandlers(userUC *usecase.UserUsecase, alertUC *usecase.AlertUsecase, logger *zap.Logger) *Handlers {
	return &Handlers{userUC: userUC, alertUC: alertUC, logger: logger}
}

func (h *Handlers) HandleUpdate(ctx context.Context, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if update.Message.IsCommand() {
		h.handleCommand(ctx, api, update)
	}
}

func (h *Handlers) handleCommand(ctx context.Context, api *tgbotapi.BotAPI, update tgbotapi.Update) {
	command := update.Message.Command()
	args := update.Message.CommandArguments()
	chatID := update.Message.Chat.ID
	username := update.Message.From.UserName

	log := h.logger.With(zap.Int64("chat_id", chatID), zap.String("command", command))
	log.Info("telegram command received", zap.String("username", username), zap.String("args", args))

	switch command {
	case "start":
		user, err := h.userUC.LinkChat(ctx, chatID, username)
		if err != nil {
			log.Warn("start command failed", zap.Error(err))
			h.reply(api, chatID, "Failed to register. Please try again.")
			return
		}
		log.Info("start command complete", zap.Uint("user_id", user.ID))
		h.reply(api, chatID, "Welcome to Nestwatch. New listings matching your alerts will arrive here.\n\n"+HelpText)
	case "help":
		h.reply(api, chatID, HelpText)
	case "add_alert":
		input, err := ParseAddAlertArgs(args)
		if err != nil {
			log.Warn("add_alert invalid args", zap.Error(err))
			h.reply(api, chatID, fmt.Sprintf("%v\n\n%s", err, "Usage: /add_alert name=\"...\" [type=..] [max_price=..] ... (see /help)"))
			return
		}
		alert, err := h.alertUC.AddAlert(ctx, chatID, input)
		if err != nil {
			log.Warn("add_alert failed", zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		log.Info("add_alert complete", zap.Uint("alert_id", alert.ID))
		h.reply(api, chatID, "Alert created:\n"+FormatAlert(*alert))
	case "alerts":
		alerts, err := h.alertUC.ListAlerts(ctx, chatID)
		if err != nil {
			log.Warn("alerts list failed", zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		if len(alerts) == 0 {
			h.reply(api, chatID, "No alerts yet. Use /add_alert to create one.")
			return
		}
		lines := make([]string, 0, len(alerts))
		for _, alert := range alerts {
			lines = append(lines, FormatAlert(alert))
		}
		h.reply(api, chatID, truncateLines("Your alerts:\n", lines))
	case "enable", "disable", "delete":
		alertID, err := ParseAlertID(args)
		if err != nil {
			h.reply(api, chatID, fmt.Sprintf("Usage: /%s <alert_id>", command))
			return
		}
		if err := h.changeAlert(ctx, command, chatID, alertID); err != nil {
			log.Warn("alert change failed", zap.Uint("alert_id", alertID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		log.Info("alert change complete", zap.Uint("alert_id", alertID))
		h.reply(api, chatID, fmt.Sprintf("Alert #%d %sd.", alertID, command))
	case "notifications":
		limit, err := ParseLimit(args)
		if err != nil {
			h.reply(api, chatID, "Usage: /notifications [count]")
			return
		}
		notifications, err := h.alertUC.RecentNotifications(ctx, chatID, limit)
		if err != nil {
			log.Warn("notifications list failed", zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		if len(notifications) == 0 {
			h.reply(api, chatID, "No matches yet.")
			return
		}
		h.reply(api, chatID, truncateLines("Recent matches:\n", formatNotifications(notifications)))
	case "read":
		notificationID, err := ParseAlertID(args)
		if err != nil {
			h.reply(api, chatID, "Usage: /read <notification_id>")
			return
		}
		if err := h.alertUC.MarkNotificationRead(ctx, chatID, notificationID); err != nil {
			log.Warn("mark read failed", zap.Uint("notification_id", notificationID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		h.reply(api, chatID, fmt.Sprintf("Notification #%d marked as read.", notificationID))
	case "mute", "unmute":
		if err := h.userUC.SetMuted(ctx, chatID, command == "mute"); err != nil {
			log.Warn("mute change failed", zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		if command == "mute" {
			h.reply(api, chatID, "Delivery paused. Matches are still recorded; /unmute to resume.")
			return
		}
		h.reply(api, chatID, "Delivery resumed.")
	default:
		log.Warn("unknown command")
		h.reply(api, chatID, "Unknown command.\n\n"+HelpText)
	}
}

func (h *Handlers) changeAlert(ctx context.Context, command string, chatID int64, alertID uint) error {
	switch command {
	case "enable":
		return h.alertUC.EnableAlert(ctx, chatID, alertID)
	case "disable":
		return h.alertUC.DisableAlert(ctx, chatID, alertID)
	default:
		return h.alertUC.DeleteAlert(ctx, chatID, alertID)
	}
}

func (h *Handlers) alertErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrUserNotRegistered):
		return "Please /start to register first."
	case errors.Is(err, usecase.ErrInvalidName):
		return "Alert name must be 1-80 characters."
	case errors.Is(err, usecase.ErrInvalidFrequency):
		return "Invalid frequency. Use instant, daily or weekly."
	case errors.Is(err, domain.ErrInvalidCriteria):
		return "Invalid criteria: " + err.Error()
	case errors.Is(err, usecase.ErrAlertNotFound):
		return "Alert not found."
	case errors.Is(err, usecase.ErrNotificationNotFound):
		return "Notification not found."
	}

	h.logger.Warn("unhandled error", zap.Error(err))
	return "Something went wrong. Please try again."
}

func formatNotifications(notifications []domain.Notification) []string {
	lines := make([]string, 0, len(notifications))
	for _, n := range notifications {
		state := string(n.Status)
		if !n.Read() {
			state += ", unread"
		}
		lines = append(lines, fmt.Sprintf("#%d %s [%s] %s", n.ID, n.CreatedAt.UTC().Format("2006-01-02 15:04"), state, n.Message))
	}
	return lines
}

func truncateLines(header string, lines []string) string {
	var builder strings.Builder
	builder.WriteString(header)
	for i, line := range lines {
		if builder.Len()+len(line)+1 > maxMessageLen {
			builder.WriteString(fmt.Sprintf("...and %d more", len(lines)-i))
			break
		}
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	return builder.String()
}

func (h *Handlers) reply(api *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := api.Send(msg); err != nil {
		h.logger.Warn("failed to send message", zap.Error(err))
	}
}
