package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/spot"
	"github.com/yashypsoft/gold-deal-finder/internal/utils"
)

// Telegram delivers deal alerts and spot summaries to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	quotes func(ctx context.Context) spot.Snapshot
}

// New connects to the Bot API and verifies the token with getMe.
func New(token string, chatID int64, quotes func(ctx context.Context) spot.Snapshot) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Printf("[notify] telegram connected as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID, quotes: quotes}, nil
}

// SendBulkAlerts reports one scan cycle: a price summary, then each deal as
// its own alert, then an overflow line when more deals exist than alerts sent.
func (t *Telegram) SendBulkAlerts(ctx context.Context, deals []listing.Product, total int) error {
	if len(deals) == 0 {
		return t.SendNoDeals(ctx, total)
	}

	if t.quotes != nil {
		if err := t.SendPriceSummary(t.quotes(ctx)); err != nil {
			log.Printf("[notify] price summary failed: %v", err)
		}
	}

	const maxAlerts = 4
	sent := 0
	for _, d := range deals {
		if sent >= maxAlerts {
			break
		}
		if err := t.SendDealAlert(d); err != nil {
			log.Printf("[notify] alert for %q failed: %v", utils.Truncate(d.Title, 40), err)
			continue
		}
		sent++
	}

	if len(deals) > sent {
		msg := tgbotapi.NewMessage(t.chatID,
			fmt.Sprintf("➕ %d more deals found this scan (of %d products checked).", len(deals)-sent, total))
		if _, err := t.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendDealAlert posts one product as a photo with caption when an image is
// available, falling back to a plain HTML message.
func (t *Telegram) SendDealAlert(p listing.Product) error {
	caption := dealCaption(p)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🛒 View Product", p.URL),
		),
	)

	if p.ImageURL != "" {
		photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FileURL(p.ImageURL))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = markup
		if _, err := t.bot.Send(photo); err == nil {
			return nil
		}
		// Bad image URLs are common on marketplace feeds; retry as text.
	}

	msg := tgbotapi.NewMessage(t.chatID, caption)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}

func dealCaption(p listing.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>GOLD DEAL FOUND</b>\n\n", dealEmoji(p.DiscountPercent))
	fmt.Fprintf(&b, "<b>%s</b>\n\n", utils.Truncate(p.Title, 120))
	fmt.Fprintf(&b, "🏪 Source: %s\n", p.Source)
	fmt.Fprintf(&b, "🏷 Brand: %s\n", p.Brand)
	fmt.Fprintf(&b, "⚖️ Weight: %gg %s %s\n", p.WeightGrams, p.Purity, p.ProductType)
	fmt.Fprintf(&b, "💵 Price: %s\n", utils.FormatINR(p.SellingPrice, 0))
	fmt.Fprintf(&b, "📊 Expected: %s\n", utils.FormatINR(p.ExpectedPrice, 0))
	fmt.Fprintf(&b, "📉 Discount: %.2f%%\n", p.DiscountPercent)
	fmt.Fprintf(&b, "💰 Per gram: %s\n", utils.FormatINR(p.PricePerGram, 0))
	fmt.Fprintf(&b, "\n🕐 %s IST", utils.FormatClock(utils.NowIST()))
	return b.String()
}

func dealEmoji(discount float64) string {
	switch {
	case discount > 15:
		return "🔥🔥"
	case discount > 10:
		return "🔥"
	case discount > 5:
		return "💰"
	}
	return "💎"
}

// SendPriceSummary posts the current spot snapshot.
func (t *Telegram) SendPriceSummary(snap spot.Snapshot) error {
	var b strings.Builder
	b.WriteString("📈 <b>Gold Rates</b>\n\n")
	fmt.Fprintf(&b, "Spot (10g 999): %s\n", utils.FormatINR(snap.Gold.Spot10g, 0))
	fmt.Fprintf(&b, "Retail 999 (10g): %s\n", utils.FormatINR(snap.Gold.Retail999, 0))
	fmt.Fprintf(&b, "RTGS 999 (10g): %s\n", utils.FormatINR(snap.Gold.RTGS999, 0))
	fmt.Fprintf(&b, "Retail 22K (10g): %s\n", utils.FormatINR(snap.Gold.Retail22K, 0))
	if snap.SilverPerGram > 0 {
		fmt.Fprintf(&b, "Silver: %s/g\n", utils.FormatINR(snap.SilverPerGram, 2))
	}
	fmt.Fprintf(&b, "\nSource: %s\n", snap.Source)
	fmt.Fprintf(&b, "🕐 %s IST", utils.FormatClock(snap.Timestamp.In(utils.ISTLoc())))

	msg := tgbotapi.NewMessage(t.chatID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(msg)
	return err
}

// SendNoDeals posts a short all-clear after a scan with no qualifying deals.
func (t *Telegram) SendNoDeals(ctx context.Context, total int) error {
	text := fmt.Sprintf("😴 No good deals this scan. %d products checked at %s IST.",
		total, utils.FormatClock(utils.NowIST()))
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}

// SendScanStatus posts a free-form status line, used by manual test runs.
func (t *Telegram) SendScanStatus(text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}
