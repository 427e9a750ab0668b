package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// teamCountOptions is the fixed size of the team-count menu.
const teamCountOptions = 3

func makeTeamCountKeyboard() tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, teamCountOptions)
	for i := 1; i <= teamCountOptions; i++ {
		label := strconv.Itoa(i)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, teamCallbackPrefix+label))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}

func (r *Router) sendTeamCountKeyboard(cid int64) {
	msg := tgbotapi.NewMessage(cid, "✅ Foto diterima. Berapa jumlah Pokja Pemilihan?")
	msg.ReplyMarkup = makeTeamCountKeyboard()
	_, _ = r.Bot.Send(msg)
}
