package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramPusher 把提醒推送到 Telegram（单向，不处理回复）
type TelegramPusher struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramPusher 创建推送器
func NewTelegramPusher(token string, chatID int64) (*TelegramPusher, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("初始化 Telegram Bot 失败: %w", err)
	}
	return &TelegramPusher{bot: bot, chatID: chatID}, nil
}

// Push 发送一条提醒
func (p *TelegramPusher) Push(text string) error {
	msg := tgbotapi.NewMessage(p.chatID, text)
	if _, err := p.bot.Send(msg); err != nil {
		return fmt.Errorf("发送 Telegram 消息失败: %w", err)
	}
	return nil
}
