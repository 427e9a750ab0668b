package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deniganda/Cek-KodeRUP/internal/session"
)

const teamCallbackPrefix = "team_"

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	mu := r.Sessions.Lock(cid)
	mu.Lock()
	defer mu.Unlock()

	if !strings.HasPrefix(cb.Data, teamCallbackPrefix) {
		return
	}
	n, err := strconv.Atoi(strings.TrimPrefix(cb.Data, teamCallbackPrefix))
	if err != nil || n < 1 || n > teamCountOptions {
		return
	}

	sess, ok := r.Sessions.Get(cid)
	if !ok || sess.Type != session.DocPokja {
		r.send(cid, "Sesi tidak ditemukan. Balas foto dokumen dengan /sptpokja.")
		return
	}
	if sess.TeamCount != 0 {
		// count already fixed; ignore stale taps
		return
	}
	sess.TeamCount = n
	sess.TeamNames = make([]string, 0, n)
	r.Sessions.Touch(sess)

	// drop the keyboard so the choice cannot be re-tapped
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)

	r.send(cid, r.prompt(sess))
}
