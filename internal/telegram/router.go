package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deniganda/Cek-KodeRUP/internal/match"
	"github.com/deniganda/Cek-KodeRUP/internal/ocr"
	"github.com/deniganda/Cek-KodeRUP/internal/session"
	"github.com/deniganda/Cek-KodeRUP/internal/store"
)

const (
	msgSessionActive = "⚠️ Masih ada sesi yang sedang berjalan. Selesaikan dulu atau kirim /batal."
	msgNeedPhoto     = "Balas (reply) foto dokumen dengan perintah ini."
	msgGenericError  = "❌ Terjadi kesalahan saat memproses gambar."
)

// botAPI is the slice of *tgbotapi.BotAPI the router uses; tests substitute
// a fake.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot          botAPI
	Engine       ocr.Engine
	Sessions     *session.Store
	Institutions *match.List
	Officials    *match.List
	Extracts     *store.ExtractRepo     // nil when no database is configured
	Submissions  *store.SubmissionRepo  // nil when no database is configured
	Log          *zap.Logger
	TempDir      string       // photo download dir; os.TempDir when empty
	HTTPClient   *http.Client // photo downloads; defaulted when nil
}

// HandleUpdate routes one inbound event. All handling for a chat runs under
// that chat's mutex so conversation steps never interleave.
func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	mu := r.Sessions.Lock(cid)
	mu.Lock()
	defer mu.Unlock()

	if upd.Message.IsCommand() {
		r.handleCommand(*upd.Message)
		return
	}
	if sess, ok := r.Sessions.Get(cid); ok {
		r.consumeAnswer(sess, *upd.Message)
	}
}

func (r *Router) handleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	cmd := msg.Command()

	if _, ok := r.Sessions.Get(cid); ok {
		// A qualifying photo reply must not overwrite the running session.
		switch cmd {
		case "spt", "sptpp", "sptpokja":
			if replyPhoto(msg) != nil {
				r.send(cid, msgSessionActive)
				return
			}
		}
		// Any other command interrupts the conversation.
		r.Sessions.End(cid)
		if cmd == "batal" {
			r.send(cid, "❌ Sesi dibatalkan.")
			return
		}
		r.send(cid, "❌ Sesi sebelumnya dibatalkan.")
	}

	switch cmd {
	case "start":
		r.sendStart(cid)
	case "batal":
		r.send(cid, "Tidak ada sesi yang sedang berjalan.")
	case "spt":
		r.startSession(msg, session.DocSPT)
	case "sptpp":
		r.startSession(msg, session.DocSPTPP)
	case "sptpokja":
		r.startSession(msg, session.DocPokja)
	default:
		r.send(cid, "Perintah tidak dikenal. Kirim /start untuk bantuan.")
	}
}

func (r *Router) sendStart(cid int64) {
	text := "Bot SPT Pengadaan.\n\n" +
		"Balas (reply) foto surat dengan salah satu perintah:\n" +
		"/spt — SPT pejabat pengadaan (dengan tanggal surat)\n" +
		"/sptpp — SPT pejabat pengadaan (tanggal otomatis)\n" +
		"/sptpokja — SPT Pokja Pemilihan\n\n" +
		"/batal — batalkan sesi yang sedang berjalan"
	if r.Submissions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if n, err := r.Submissions.CountByChat(ctx, cid); err == nil && n > 0 {
			text += fmt.Sprintf("\n\nTautan yang sudah dibuat: %d", n)
		}
	}
	r.send(cid, text)
}

func (r *Router) startSession(msg tgbotapi.Message, typ session.DocumentType) {
	cid := msg.Chat.ID
	ph := replyPhoto(msg)
	if ph == nil {
		r.send(cid, msgNeedPhoto)
		return
	}
	path, err := r.downloadPhoto(ph.FileID)
	if err != nil {
		r.Log.Error("photo download", zap.Int64("chat", cid), zap.Error(err))
		r.send(cid, msgGenericError)
		return
	}
	sess := session.New(cid, typ, path)
	if err := r.Sessions.Start(sess); err != nil {
		sess.ReleaseImage()
		r.send(cid, msgSessionActive)
		return
	}
	r.Log.Info("session started", zap.Int64("chat", cid), zap.String("type", string(typ)))

	if typ == session.DocPokja {
		r.sendTeamCountKeyboard(cid)
		return
	}
	r.send(cid, "✅ Foto diterima. "+r.prompt(sess))
}

// replyPhoto returns the largest size of the replied-to photo, nil when the
// command does not qualify.
func replyPhoto(msg tgbotapi.Message) *tgbotapi.PhotoSize {
	if msg.ReplyToMessage == nil || len(msg.ReplyToMessage.Photo) == 0 {
		return nil
	}
	ph := msg.ReplyToMessage.Photo[len(msg.ReplyToMessage.Photo)-1]
	return &ph
}

func (r *Router) downloadPhoto(fileID string) (string, error) {
	fileURL, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient().Get(fileURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	dir := r.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, uuid.NewString()+".jpg")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (r *Router) send(chatID int64, text string) {
	_, _ = r.Bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, _ = r.Bot.Send(msg)
}
