package discord

import (
	"fmt"
	"time"

	"github.com/assist-by/halvar/internal/domain"
	"github.com/assist-by/halvar/internal/notification"
)

const footerText = "Assist by Trading Bot 🤖"

// SendTrade는 체결된 거래 알림을 전송합니다
func (c *Client) SendTrade(trade domain.Trade) error {
	var emoji, title string
	switch trade.Side {
	case domain.Buy:
		emoji = "🛒"
		title = "매수 체결"
	case domain.Sell:
		emoji = "💰"
		title = "매도 체결"
	default:
		emoji = "❓"
		title = "거래 체결"
	}

	mode := "자동"
	if trade.IsManual {
		mode = "수동"
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("%s %s: BTC/EUR", emoji, title)).
		SetColor(notification.GetColorForSide(trade.Side)).
		AddField("수량", fmt.Sprintf("%s BTC", trade.Amount.StringFixed(8)), true).
		AddField("기준가", fmt.Sprintf("%s EUR", trade.Price.StringFixed(2)), true).
		AddField("수수료", trade.Fee.String(), true).
		AddField("구분", mode, true).
		AddField("주문 ID", trade.ID, false).
		SetFooter(footerText).
		SetTimestamp(trade.Timestamp)

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}
