package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"loyalty-bot/internal/models"
	"loyalty-bot/internal/storage"
)

const accessDeniedText = "⛔️ Доступ заборонено."

const daysHint = "0 = неділя\n" +
	"1 = понеділок\n" +
	"2 = вівторок\n" +
	"3 = середа\n" +
	"4 = четвер\n" +
	"5 = п'ятниця\n" +
	"6 = субота"

// handleAdminButton reacts to the exact-match admin menu buttons. Returns
// true when the text matched one, whether or not access was granted.
func (b *Bot) handleAdminButton(ctx context.Context, message *tgbotapi.Message) bool {
	switch message.Text {
	case btnAdminPanel, btnOnceBroadcast, btnWeekly, btnSendWeeklyNow,
		btnEditWeeklyText, btnEditWeeklyTime, btnEditPromos:
	default:
		return false
	}

	if !b.isAdmin(message.From.UserName) {
		b.reply(message.Chat.ID, accessDeniedText)
		return true
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	switch message.Text {
	case btnAdminPanel:
		b.replyKB(chatID, "Адмін-панель:", adminPanelKeyboard())

	case btnOnceBroadcast:
		b.reply(chatID, "Введіть текст для одноразової розсилки:")
		b.sessions.Set(userID, Session{State: StateAwaitingBroadcastText})

	case btnWeekly:
		text := b.weeklyText(ctx)
		if text == "" {
			text = "Текст тижневої розсилки ще не задано."
		}
		b.replyKB(chatID, fmt.Sprintf("Поточний текст тижневої розсилки:\n\n%s", text), weeklyKeyboard())

	case btnSendWeeklyNow:
		text := b.weeklyText(ctx)
		if text == "" {
			b.reply(chatID, "Текст тижневої розсилки не задано.")
			return true
		}
		sent, failed, err := b.broadcaster.SendToAll(ctx, text)
		if err != nil {
			b.logger.Error("Weekly broadcast failed", "error", err)
			b.reply(chatID, "Сталася помилка при розсилці. Спробуйте пізніше.")
			return true
		}
		b.replyKB(chatID,
			fmt.Sprintf("Тижнева розсилка надіслана. Успішно: %d, помилок: %d.", sent, failed),
			mainMenuKeyboard(true))

	case btnEditWeeklyText:
		b.reply(chatID, "Введіть новий текст для тижневої розсилки:")
		b.sessions.Set(userID, Session{State: StateAwaitingWeeklyText})

	case btnEditWeeklyTime:
		b.reply(chatID, fmt.Sprintf(
			"Введіть новий час у форматі: день_тижня година:хвилина\nНаприклад: 5 18:00\n\nДні тижня:\n%s",
			daysHint))
		b.sessions.Set(userID, Session{State: StateAwaitingWeeklyTime})

	case btnEditPromos:
		b.replyKB(chatID, "Оберіть дію з акціями:", promoMenuKeyboard())
		b.sessions.Set(userID, Session{State: StateAwaitingPromoMenu})
	}

	return true
}

// handleAdminState consumes one free-text input for the session's current
// state. Invalid input re-prompts and leaves the state parked; nothing is
// persisted before validation passes.
func (b *Bot) handleAdminState(ctx context.Context, message *tgbotapi.Message, session Session) {
	if !b.isAdmin(message.From.UserName) {
		b.reply(message.Chat.ID, accessDeniedText)
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	text := message.Text

	if strings.TrimSpace(text) == "" {
		// Stickers, photos and the like; the state stays parked.
		b.reply(chatID, "Надішліть текстове повідомлення.")
		return
	}

	switch session.State {
	case StateAwaitingBroadcastText:
		sent, failed, err := b.broadcaster.SendToAll(ctx, text)
		if err != nil {
			b.logger.Error("One-off broadcast failed", "error", err)
			b.reply(chatID, "Сталася помилка при розсилці. Спробуйте пізніше.")
		} else {
			b.replyKB(chatID,
				fmt.Sprintf("Розсилку надіслано. Успішно: %d, помилок: %d.", sent, failed),
				mainMenuKeyboard(true))
		}
		b.sessions.Clear(userID)

	case StateAwaitingWeeklyText:
		if err := b.store.SetWeeklyText(ctx, text); err != nil {
			b.logger.Error("Failed to save weekly text", "error", err)
			b.reply(chatID, "Не вдалося зберегти текст. Спробуйте пізніше.")
			return
		}
		b.replyKB(chatID, "Текст тижневої розсилки збережено!", mainMenuKeyboard(true))
		b.sessions.Clear(userID)

	case StateAwaitingWeeklyTime:
		day, hour, minute, err := parseWeeklyTime(text)
		if err != nil {
			// State stays parked so the admin can retry.
			b.reply(chatID, "Невірний формат. Спробуйте ще раз: день_тижня година:хвилина")
			return
		}
		if err := b.store.SetWeeklyTime(ctx, day, hour, minute); err != nil {
			b.logger.Error("Failed to save weekly time", "error", err)
			b.reply(chatID, "Не вдалося зберегти час. Спробуйте пізніше.")
			return
		}
		if b.scheduler != nil {
			if err := b.scheduler.Reschedule(day, hour, minute); err != nil {
				b.logger.Error("Failed to reschedule weekly broadcast", "error", err)
			}
		}
		b.replyKB(chatID,
			fmt.Sprintf("Час тижневої розсилки збережено: %d %02d:%02d", day, hour, minute),
			mainMenuKeyboard(true))
		b.sessions.Clear(userID)

	case StateAwaitingPromoMenu:
		b.handlePromoMenuChoice(ctx, message)

	case StateAwaitingNewPromoText:
		if _, err := b.store.AddPromo(ctx, text); err != nil {
			b.logger.Error("Failed to add promo", "error", err)
			b.reply(chatID, "Не вдалося додати акцію. Спробуйте пізніше.")
			return
		}
		b.replyKB(chatID, "Акцію додано!", mainMenuKeyboard(true))
		b.sessions.Clear(userID)

	case StateAwaitingEditPromoID:
		id, ok := b.parsePromoID(ctx, chatID, text)
		if !ok {
			return
		}
		session.EditPromoID = id
		session.State = StateAwaitingEditPromoText
		b.sessions.Set(userID, session)
		b.reply(chatID, "Введіть новий текст для акції:")

	case StateAwaitingEditPromoText:
		err := b.store.UpdatePromo(ctx, session.EditPromoID, text)
		if errors.Is(err, storage.ErrNotFound) {
			b.replyKB(chatID, "Акції з таким номером не існує!", mainMenuKeyboard(true))
			b.sessions.Clear(userID)
			return
		}
		if err != nil {
			b.logger.Error("Failed to update promo", "promo_id", session.EditPromoID, "error", err)
			b.reply(chatID, "Не вдалося оновити акцію. Спробуйте пізніше.")
			return
		}
		b.replyKB(chatID, "Акцію оновлено!", mainMenuKeyboard(true))
		b.sessions.Clear(userID)

	case StateAwaitingDeletePromoID:
		id, ok := b.parsePromoID(ctx, chatID, text)
		if !ok {
			return
		}
		err := b.store.DeletePromo(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, "Акції з таким номером не існує!")
			return
		}
		if err != nil {
			b.logger.Error("Failed to delete promo", "promo_id", id, "error", err)
			b.reply(chatID, "Не вдалося видалити акцію. Спробуйте пізніше.")
			return
		}
		b.replyKB(chatID, "Акцію видалено!", mainMenuKeyboard(true))
		b.sessions.Clear(userID)
	}
}

func (b *Bot) handlePromoMenuChoice(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch message.Text {
	case btnAddPromo:
		b.reply(chatID, "Введіть текст нової акції:")
		b.sessions.Set(userID, Session{State: StateAwaitingNewPromoText})

	case btnEditPromo:
		promos := b.listPromosOrEmpty(ctx)
		if len(promos) == 0 {
			b.replyKB(chatID, "Немає акцій для редагування.", mainMenuKeyboard(true))
			b.sessions.Clear(userID)
			return
		}
		b.reply(chatID, "Введіть номер акції для редагування:\n"+formatPromoList(promos))
		b.sessions.Set(userID, Session{State: StateAwaitingEditPromoID})

	case btnDeletePromo:
		promos := b.listPromosOrEmpty(ctx)
		if len(promos) == 0 {
			b.replyKB(chatID, "Немає акцій для видалення.", mainMenuKeyboard(true))
			b.sessions.Clear(userID)
			return
		}
		b.reply(chatID, "Введіть номер акції для видалення:\n"+formatPromoList(promos))
		b.sessions.Set(userID, Session{State: StateAwaitingDeletePromoID})

	default:
		b.reply(chatID, "Оберіть дію з меню.")
	}
}

// parsePromoID validates a typed promo id: numeric and currently existing.
// On failure it re-prompts and reports false so the state stays parked.
func (b *Bot) parsePromoID(ctx context.Context, chatID int64, text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		b.reply(chatID, "Введіть коректний номер акції!")
		return 0, false
	}

	for _, p := range b.listPromosOrEmpty(ctx) {
		if p.ID == id {
			return id, true
		}
	}

	b.reply(chatID, "Акції з таким номером не існує!")
	return 0, false
}

func (b *Bot) listPromosOrEmpty(ctx context.Context) []models.Promo {
	promos, err := b.store.ListPromos(ctx)
	if err != nil {
		b.logger.Error("Failed to list promos", "error", err)
		return nil
	}
	return promos
}

func (b *Bot) weeklyText(ctx context.Context) string {
	wb, err := b.store.WeeklyBroadcast(ctx)
	if err != nil {
		b.logger.Error("Failed to load weekly broadcast config", "error", err)
		return ""
	}
	return wb.Text
}

func formatPromoList(promos []models.Promo) string {
	var sb strings.Builder
	for _, p := range promos {
		fmt.Fprintf(&sb, "%d. %s\n", p.ID, p.Text)
	}
	return sb.String()
}

// parseWeeklyTime parses "<day> <hour>:<minute>" with day 0-6 (0 = Sunday),
// hour 0-23 and minute 0-59.
func parseWeeklyTime(input string) (day, hour, minute int, err error) {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("expected \"<day> <hour>:<minute>\", got %q", input)
	}

	day, err = strconv.Atoi(parts[0])
	if err != nil || day < 0 || day > 6 {
		return 0, 0, 0, fmt.Errorf("day of week out of range: %q", parts[0])
	}

	hm := strings.Split(parts[1], ":")
	if len(hm) != 2 {
		return 0, 0, 0, fmt.Errorf("expected <hour>:<minute>, got %q", parts[1])
	}

	hour, err = strconv.Atoi(hm[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, 0, fmt.Errorf("hour out of range: %q", hm[0])
	}

	minute, err = strconv.Atoi(hm[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, 0, fmt.Errorf("minute out of range: %q", hm[1])
	}

	return day, hour, minute, nil
}
