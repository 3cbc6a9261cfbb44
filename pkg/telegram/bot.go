package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Clean1ines/shazamio/pkg/api/client"
	"github.com/Clean1ines/shazamio/pkg/logging"
	"github.com/Clean1ines/shazamio/pkg/operations"
)

// Caller выполняет сервис по имени.
type Caller interface {
	Call(ctx context.Context, name string, params operations.Params) (json.RawMessage, error)
}

// RateLimiter ограничивает частоту запросов пользователя.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// API - часть tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot - Telegram-интерфейс к распознаванию, поиску и чартам.
type Bot struct {
	api    API
	caller Caller
	logger *logging.Logger
	http   *client.Client

	Limiter    RateLimiter
	RateLimit  int
	RateWindow time.Duration
	// MaxAudioBytes ограничивает размер скачиваемого файла.
	MaxAudioBytes int
}

// NewBot создает бота поверх готового API.
func NewBot(api API, caller Caller, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.Default
	}
	return &Bot{
		api:           api,
		caller:        caller,
		logger:        logger,
		http:          client.New(4, client.WithTimeout(60*time.Second)),
		RateLimit:     3,
		RateWindow:    5 * time.Second,
		MaxAudioBytes: 20 << 20,
	}
}

// Connect авторизуется по токену.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	return tgbotapi.NewBotAPI(token)
}

// Start получает обновления long polling до отмены ctx.
func (b *Bot) Start(ctx context.Context, api *tgbotapi.BotAPI) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				go b.HandleMessage(ctx, update.Message)
			}
		}
	}
}

// HandleMessage обрабатывает команду или аудиосообщение.
func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	fileID := audioFileID(msg)
	if !msg.IsCommand() && fileID == "" {
		b.sendText(chatID, helpText)
		return
	}
	if msg.IsCommand() && (msg.Command() == "start" || msg.Command() == "help") {
		b.sendText(chatID, helpText)
		return
	}
	if !b.allow(ctx, msg) {
		b.sendText(chatID, "Слишком много запросов, попробуйте позже.")
		return
	}

	if fileID != "" {
		b.recognize(ctx, chatID, fileID)
		return
	}
	switch msg.Command() {
	case "search":
		query := strings.TrimSpace(msg.CommandArguments())
		if query == "" {
			b.sendText(chatID, "Использование: /search <название или исполнитель>")
			return
		}
		b.reply(ctx, chatID, operations.OpSearchTrack, operations.Params{"query": query, "limit": 5})
	case "top":
		country := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
		if country == "" {
			b.reply(ctx, chatID, operations.OpTopWorldTracks, operations.Params{"limit": 10})
			return
		}
		b.reply(ctx, chatID, operations.OpTopCountryTracks, operations.Params{"country_code": country, "limit": 10})
	default:
		b.sendText(chatID, "Неизвестная команда. Используйте /help.")
	}
}

const helpText = "Отправьте голосовое сообщение или аудиофайл, и я попробую распознать трек.\n" +
	"/search <запрос> - поиск трека\n" +
	"/top [код страны] - мировой или национальный чарт"

func (b *Bot) allow(ctx context.Context, msg *tgbotapi.Message) bool {
	if b.Limiter == nil || msg.From == nil {
		return true
	}
	ok, err := b.Limiter.Allow(ctx, fmt.Sprintf("tg:%d", msg.From.ID), b.RateLimit, b.RateWindow)
	if err != nil {
		b.logger.Warnf("Ограничение частоты недоступно: %v", err)
		return true
	}
	return ok
}

func audioFileID(msg *tgbotapi.Message) string {
	switch {
	case msg.Voice != nil:
		return msg.Voice.FileID
	case msg.Audio != nil:
		return msg.Audio.FileID
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "audio/"):
		return msg.Document.FileID
	}
	return ""
}

func (b *Bot) recognize(ctx context.Context, chatID int64, fileID string) {
	data, err := b.download(ctx, fileID)
	if err != nil {
		b.logger.Errorf("Ошибка загрузки файла %s: %v", fileID, err)
		b.sendText(chatID, "Не удалось получить аудио.")
		return
	}
	b.reply(ctx, chatID, operations.OpRecognize, operations.Params{"audio_data": data})
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	resp, body, err := b.http.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if b.MaxAudioBytes > 0 && len(body) > b.MaxAudioBytes {
		return nil, fmt.Errorf("файл больше %d байт", b.MaxAudioBytes)
	}
	return body, nil
}

func (b *Bot) reply(ctx context.Context, chatID int64, operation string, params operations.Params) {
	result, err := b.caller.Call(ctx, operation, params)
	if err != nil {
		b.logger.Errorf("Ошибка %s: %v", operation, err)
		b.sendText(chatID, "Сервис недоступен, попробуйте позже.")
		return
	}
	b.sendText(chatID, FormatResult(result))
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Errorf("Ошибка отправки сообщения: %v", err)
	}
}
