package gateway

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/priya/vachan/internal/agent"
)

type TelegramGateway struct {
	Bot       *tgbotapi.BotAPI
	Brain     agent.Brain
	sanitizer *bluemonday.Policy
}

// telegramPolicy keeps only the HTML tags Telegram's HTML parse mode
// accepts; anything else in a model reply would make the send call fail.
func telegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "code", "pre")
	p.AllowAttrs("href").OnElements("a")
	return p
}

func NewTelegramGateway(token string, brain agent.Brain) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:       bot,
		Brain:     brain,
		sanitizer: telegramPolicy(),
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			continue
		}

		ctx := context.Background()
		chatID := fmt.Sprintf("%d", update.Message.Chat.ID)
		response, err := tg.Brain.Think(ctx, chatID, update.Message.Text)
		if err != nil {
			log.Printf("Error thinking: %v", err)
			response = "I'm having trouble thinking right now..."
		}

		msg := tgbotapi.NewMessage(update.Message.Chat.ID, tg.sanitizer.Sanitize(response))
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := tg.Bot.Send(msg); err != nil {
			// Retry without formatting; the text may not be valid HTML.
			plain := tgbotapi.NewMessage(update.Message.Chat.ID, response)
			_, _ = tg.Bot.Send(plain)
		}
	}
	return nil
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := int64(0)
	if _, err := fmt.Sscanf(chatID, "%d", &id); err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(id, tg.sanitizer.Sanitize(text))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
