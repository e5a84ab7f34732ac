package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Menu button labels. Dispatch matches on the exact text, so these are the
// single source of truth for both keyboards and handlers.
const (
	btnQR       = "📱 Мій QR-код"
	btnCashback = "💰 Кешбек"
	btnMenu     = "🍽 Меню закладу"
	btnDelivery = "🛵 Доставка"
	btnBooking  = "📅 Забронювати столик"
	btnPromos   = "🏷 Акції"
	btnBack     = "‹ Повернутись до меню"

	btnAdminPanel     = "⚙️ Адмін-панель"
	btnOnceBroadcast  = "📢 Одноразова розсилка"
	btnWeekly         = "🔁 Тижнева розсилка"
	btnSendWeeklyNow  = "✅ Надіслати тижневу розсилку"
	btnEditWeeklyText = "✏️ Редагувати текст тижневої розсилки"
	btnEditWeeklyTime = "⏰ Редагувати час тижневої розсилки"
	btnEditPromos     = "📝 Редагувати акції"
	btnAddPromo       = "➕ Додати акцію"
	btnEditPromo      = "✏️ Редагувати акцію"
	btnDeletePromo    = "❌ Видалити акцію"

	btnShareContact = "📱 Поділитися номером телефону"
)

// mainMenuKeyboard is the top-level reply keyboard. Admins get an extra
// row leading to the admin panel.
func mainMenuKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(btnQR)},
		{tgbotapi.NewKeyboardButton(btnCashback)},
		{tgbotapi.NewKeyboardButton(btnMenu)},
		{tgbotapi.NewKeyboardButton(btnDelivery)},
		{tgbotapi.NewKeyboardButton(btnBooking)},
		{tgbotapi.NewKeyboardButton(btnPromos)},
	}
	if isAdmin {
		rows = append([][]tgbotapi.KeyboardButton{{tgbotapi.NewKeyboardButton(btnAdminPanel)}}, rows...)
	}

	return tgbotapi.NewReplyKeyboard(rows...)
}

func backMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
}

func adminPanelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnOnceBroadcast)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnWeekly)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEditWeeklyText)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEditWeeklyTime)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEditPromos)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
}

func weeklyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSendWeeklyNow)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
}

func promoMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddPromo)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnEditPromo)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeletePromo)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
}

func contactRequestKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(btnShareContact)),
	)
}

func linkKeyboard(label, url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, url)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, callbackBackToMenu)),
	)
}

func bookingKeyboard(instagramURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Скопіювати номер", callbackCopyPhone)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Instagram", instagramURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, callbackBackToMenu)),
	)
}
