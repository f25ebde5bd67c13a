package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/admin/tg-bots/premium-club/internal/domain"
)

const (
	WelcomeHeader = "🎉 <b>Добро пожаловать в Premium Club!</b>\n\n"
	RenewalHeader = "✅ <b>Подписка продлена!</b>\n\n"

	WelcomeLinksHint = "\nСсылки одноразовые и привязаны к вам — не пересылайте их."

	KickedMessage = "😔 Срок вашей подписки Premium Club истёк, доступ к каналу и чату закрыт.\n\n" +
		"Чтобы вернуться — просто оплатите подписку заново, доступ восстановится автоматически."

	ReinstatedHeader = "🎉 <b>Доступ восстановлен!</b>\n\n" +
		"Ваша подписка Premium Club снова активна. Заходите по ссылкам ниже:"
)

// FormatWelcome форматирует приветствие после оплаты
func FormatWelcome(period domain.Period, renewal bool, until time.Time) string {
	var message strings.Builder

	if renewal {
		message.WriteString(RenewalHeader)
	} else {
		message.WriteString(WelcomeHeader)
	}

	message.WriteString(fmt.Sprintf("Тариф: <b>%s</b>\n", period.Name))
	message.WriteString(fmt.Sprintf("Доступ до: <b>%s</b>\n", until.Format("02.01.2006")))

	if !renewal {
		message.WriteString("\nВаши персональные ссылки на канал и чат — в кнопках под этим сообщением.")
		message.WriteString(WelcomeLinksHint)
	}

	return message.String()
}

// FormatReminder форматирует напоминание о скором окончании подписки
func FormatReminder(sub *domain.Subscription) string {
	var message strings.Builder

	message.WriteString("⏰ <b>Подписка скоро закончится</b>\n\n")
	message.WriteString(fmt.Sprintf("Доступ к Premium Club действует до <b>%s</b>.\n", sub.ExpiresAt.Format("02.01.2006")))
	message.WriteString("Продлите подписку заранее, чтобы не потерять доступ к каналу и чату.")

	return message.String()
}

// FormatAdminPayment форматирует отчёт админу о принятом платеже
func FormatAdminPayment(entry *domain.LedgerEntry, period domain.Period, renewal bool) string {
	var message strings.Builder

	if renewal {
		message.WriteString("💳 <b>Продление подписки</b>\n\n")
	} else {
		message.WriteString("💰 <b>Новая оплата</b>\n\n")
	}

	message.WriteString(fmt.Sprintf("Провайдер: %s\n", entry.Provider))
	message.WriteString(fmt.Sprintf("Транзакция: <code>%s</code>\n", entry.ProviderTransactionID))
	message.WriteString(fmt.Sprintf("Тариф: %s (+%d дн.)\n", period.Name, entry.DaysAdded))
	message.WriteString(fmt.Sprintf("Сумма: %s %s (%s USD)\n",
		entry.OriginalAmount.String(), entry.OriginalCurrency, entry.NormalizedAmount.String()))

	if entry.TelegramID != nil {
		message.WriteString(fmt.Sprintf("Пользователь: <code>%d</code>", *entry.TelegramID))
		if entry.Username != nil {
			message.WriteString(fmt.Sprintf(" (@%s)", *entry.Username))
		}
		message.WriteString("\n")
	} else if entry.Username != nil {
		message.WriteString(fmt.Sprintf("Пользователь: @%s (id не разрезолвлен)\n", *entry.Username))
	} else {
		message.WriteString("⚠️ Пользователь не определён, платёж ждёт ручной сверки\n")
	}

	return message.String()
}

// FormatAdminSweep форматирует сводку по результатам свипа
func FormatAdminSweep(report string) string {
	return fmt.Sprintf("🧹 <b>Ночной свип подписок</b>\n\n%s", report)
}

// inviteKeyboard собирает inline-клавиатуру со ссылками на канал и чат
func inviteKeyboard(invites domain.GrantResult) map[string]interface{} {
	var row []map[string]interface{}
	if invites.ChannelInvite != nil {
		row = append(row, map[string]interface{}{
			"text": "📢 Канал",
			"url":  *invites.ChannelInvite,
		})
	}
	if invites.ChatInvite != nil {
		row = append(row, map[string]interface{}{
			"text": "💬 Чат",
			"url":  *invites.ChatInvite,
		})
	}
	if len(row) == 0 {
		return nil
	}
	return map[string]interface{}{
		"inline_keyboard": [][]map[string]interface{}{row},
	}
}
