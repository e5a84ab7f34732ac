package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	qrcode "github.com/skip2/go-qrcode"

	"loyalty-bot/internal/ledger"
	"loyalty-bot/internal/storage"
)

func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := fmt.Sprintf(
		"Приємно познайомитись, <b>%s</b>!\n\nТакож додайте свій номер телефону, натиснувши на кнопку нижче 👇",
		message.From.FirstName,
	)
	b.replyKB(message.Chat.ID, text, contactRequestKeyboard())
}

// handleContact finishes registration with the shared phone number.
func (b *Bot) handleContact(ctx context.Context, message *tgbotapi.Message) {
	phone := message.Contact.PhoneNumber

	if err := b.ledger.Register(ctx, message.From.ID, phone); err != nil {
		b.logger.Error("Failed to register user", "user_id", message.From.ID, "error", err)
		b.reply(message.Chat.ID, "Сталася помилка при збереженні номера. Спробуйте ще раз пізніше.")
		return
	}

	b.logger.Info("User registered", "user_id", message.From.ID)
	b.replyKB(message.Chat.ID,
		"Ваш номер телефону успішно збережено\n\nРеєстрацію завершено!",
		mainMenuKeyboard(b.isAdmin(message.From.UserName)))
}

func (b *Bot) handleBackToMenu(message *tgbotapi.Message) {
	b.sessions.Clear(message.From.ID)
	b.replyKB(message.Chat.ID, "🏠 Головне меню:", mainMenuKeyboard(b.isAdmin(message.From.UserName)))
}

// handleQR renders the stored phone number as a QR code and sends it as a
// photo attachment.
func (b *Bot) handleQR(ctx context.Context, message *tgbotapi.Message) {
	status, err := b.ledger.Status(ctx, message.From.ID)
	if errors.Is(err, storage.ErrNotFound) {
		b.replyKB(message.Chat.ID,
			"❌ Ви ще не зареєстровані або не вказали номер телефону. Натисніть /start",
			backMenuKeyboard())
		return
	}
	if err != nil {
		b.logger.Error("Failed to load user for QR", "user_id", message.From.ID, "error", err)
		b.replyKB(message.Chat.ID, "Сталася помилка. Спробуйте пізніше.", backMenuKeyboard())
		return
	}

	png, err := qrcode.Encode(status.Phone, qrcode.Medium, 300)
	if err != nil {
		b.logger.Error("Failed to generate QR code", "user_id", message.From.ID, "error", err)
		b.replyKB(message.Chat.ID, "❌ Помилка при генерації QR-коду. Спробуйте пізніше.", backMenuKeyboard())
		return
	}

	photo := tgbotapi.NewPhoto(message.Chat.ID, tgbotapi.FileBytes{Name: "qr_code.png", Bytes: png})
	photo.Caption = fmt.Sprintf("📷 Ваш QR-код для нарахування бонусів\n\nНомер: <b>%s</b>", status.Phone)
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyMarkup = backMenuKeyboard()
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("Failed to send QR photo", "chat_id", message.Chat.ID, "error", err)
	}
}

func (b *Bot) handleCashback(ctx context.Context, message *tgbotapi.Message) {
	status, err := b.ledger.Status(ctx, message.From.ID)
	if errors.Is(err, storage.ErrNotFound) {
		b.replyKB(message.Chat.ID, "❌ Ви ще не зареєстровані. Натисніть /start", backMenuKeyboard())
		return
	}
	if err != nil {
		b.logger.Error("Failed to load user status", "user_id", message.From.ID, "error", err)
		b.replyKB(message.Chat.ID, "Сталася помилка. Спробуйте пізніше.", backMenuKeyboard())
		return
	}

	tierName := "Базовий (5% кешбек)"
	if status.Tier == ledger.TierSilver {
		tierName = "Срібний (10% кешбек)"
	}

	progress := status.TotalSpent * 100 / ledger.TierThreshold
	if progress > 100 {
		progress = 100
	}

	text := fmt.Sprintf("<b>👤 Профіль: %s</b>\n\n", message.From.FirstName)
	text += fmt.Sprintf("<b>💳 Рівень:</b> %s\n", tierName)
	text += fmt.Sprintf("<b>🎁 Бонусні бали:</b> %d\n", status.BonusPoints)
	text += fmt.Sprintf("<b>💸 Сума покупок:</b> %d грн\n", status.TotalSpent)
	if status.Tier == ledger.TierBasic {
		text += fmt.Sprintf("⬆️ Прогрес до срібного рівня: %d%% (залишилось %d грн)\n", progress, status.ToNextTier)
	}
	text += "\n⭐ Накопичуйте витрати — кешбек зростає з рівнем!"

	b.replyKB(message.Chat.ID, text, backMenuKeyboard())
}

func (b *Bot) handleMenuLink(message *tgbotapi.Message) {
	b.replyKB(message.Chat.ID, "Меню закладу:", linkKeyboard("Меню закладу", b.venue.MenuURL))
}

func (b *Bot) handleDelivery(message *tgbotapi.Message) {
	b.replyKB(message.Chat.ID, "Доставка доступна через Bolt Food!", linkKeyboard("Bolt Food", b.venue.DeliveryURL))
}

func (b *Bot) handleBooking(message *tgbotapi.Message) {
	text := fmt.Sprintf(
		"Забронювати столик можна за номером телефону: <b>%s</b>\nабо написати в дірект Instagram.",
		b.venue.BookingPhone,
	)
	b.replyKB(message.Chat.ID, text, bookingKeyboard(b.venue.InstagramURL))
}

func (b *Bot) handlePromos(ctx context.Context, message *tgbotapi.Message) {
	promos, err := b.store.ListPromos(ctx)
	if err != nil {
		b.logger.Error("Failed to list promos", "error", err)
		promos = nil
	}

	if len(promos) == 0 {
		b.replyKB(message.Chat.ID, "Зараз немає актуальних акцій.", backMenuKeyboard())
		return
	}

	text := "<b>Актуальні акції:</b>\n"
	for _, p := range promos {
		text += fmt.Sprintf("\n%d. %s", p.ID, p.Text)
	}
	b.replyKB(message.Chat.ID, text, backMenuKeyboard())
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	switch query.Data {
	case callbackBackToMenu:
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Error("Failed to answer callback", "error", err)
		}
		if query.Message != nil {
			b.replyKB(query.Message.Chat.ID, "🏠 Головне меню:", mainMenuKeyboard(b.isAdmin(query.From.UserName)))
		}
	case callbackCopyPhone:
		callback := tgbotapi.NewCallbackWithAlert(query.ID, "Номер скопійовано!")
		if _, err := b.api.Request(callback); err != nil {
			b.logger.Error("Failed to answer callback", "error", err)
		}
		if query.Message != nil {
			b.reply(query.Message.Chat.ID, b.venue.BookingPhone)
		}
	default:
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Error("Failed to answer callback", "error", err)
		}
	}
}
