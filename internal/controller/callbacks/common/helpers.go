package common

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Helper functions для всех callback handlers

// AnswerCallback отвечает на callback query (без alert)
func AnswerCallback(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	})
}

// AnswerCallbackAlert отвечает на callback query с alert (всплывающее окно)
func AnswerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// GetMessageFromCallback извлекает сообщение из callback query
func GetMessageFromCallback(callback *models.CallbackQuery) *models.Message {
	if callback.Message.Message != nil {
		return callback.Message.Message
	}
	return nil
}

// ParseIDFromCallback извлекает ID из callback data
// Например: "ap_view:123" -> 123
func ParseIDFromCallback(data string) (int64, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid callback data format")
	}
	return strconv.ParseInt(parts[1], 10, 64)
}

// ParseCallbackArgs отрезает префикс и делит остаток на n частей.
// "ap_rtime:12:2026-03-10:0930" с префиксом "ap_rtime:" -> ["12", "2026-03-10", "0930"]
func ParseCallbackArgs(data, prefix string, n int) ([]string, error) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok || rest == "" {
		return nil, ErrInvalidFormat
	}
	parts := strings.Split(rest, ":")
	if len(parts) != n {
		return nil, ErrInvalidFormat
	}
	return parts, nil
}

// EncodeSlot превращает "09:30" в "0930" для callback data
func EncodeSlot(slot string) string {
	return strings.ReplaceAll(slot, ":", "")
}

// DecodeSlot превращает "0930" обратно в "09:30"
func DecodeSlot(raw string) (string, error) {
	if len(raw) != 4 {
		return "", ErrInvalidFormat
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return "", ErrInvalidFormat
	}
	return raw[:2] + ":" + raw[2:], nil
}

// IsMessageNotModifiedError проверяет ошибку Telegram о том, что текст и клавиатура не изменились
func IsMessageNotModifiedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
