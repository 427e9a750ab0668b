package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deniganda/Cek-KodeRUP/internal/extract"
	"github.com/deniganda/Cek-KodeRUP/internal/match"
	"github.com/deniganda/Cek-KodeRUP/internal/ocr"
	"github.com/deniganda/Cek-KodeRUP/internal/session"
)

type fakeBot struct {
	mu      sync.Mutex
	sent    []string
	fileURL string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		b.sent = append(b.sent, m.Text)
	case tgbotapi.EditMessageReplyMarkupConfig:
		b.sent = append(b.sent, "<keyboard removed>")
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return b.fileURL + "/" + fileID, nil
}

func (b *fakeBot) last(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.sent)
	return b.sent[len(b.sent)-1]
}

func (b *fakeBot) contains(substr string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sent {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

type fakeEngine struct {
	text    string
	textErr error
	answers map[string]string
}

func (e *fakeEngine) Name() string     { return "fake" }
func (e *fakeEngine) GetModel() string { return "fake-model" }

func (e *fakeEngine) ExtractText(ctx context.Context, image []byte, mime string) (string, error) {
	return e.text, e.textErr
}

func (e *fakeEngine) Answer(ctx context.Context, sourceText, question string) (string, error) {
	return e.answers[question], nil
}

func letterAnswers() map[string]string {
	return map[string]string{
		extract.LetterQuestions[0].Text:      "Kab. Lampung Barat",
		extract.LetterQuestions[1].Text:      "005/123",
		extract.LetterQuestions[2].Text:      "Permohonan SPT",
		extract.LetterQuestions[3].Text:      "12345678, 87654321",
		extract.PokjaLetterQuestions[3].Text: "12345678, 87654321",
	}
}

func newTestRouter(t *testing.T, eng ocr.Engine) (*Router, *fakeBot, string) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00})
	}))
	t.Cleanup(ts.Close)

	bot := &fakeBot{fileURL: ts.URL + "/file"}
	dir := t.TempDir()
	r := &Router{
		Bot:          bot,
		Engine:       eng,
		Sessions:     session.NewStore(time.Minute, nil),
		Institutions: match.NewList([]string{"Kab. Lampung Barat", "Kementerian ABC"}),
		Officials:    match.NewList([]string{"Budi Santoso", "Pokja Pemilihan I", "Pokja Pemilihan II"}),
		Log:          zap.NewNop(),
		TempDir:      dir,
		HTTPClient:   ts.Client(),
	}
	return r, bot, dir
}

func commandMessage(cid int64, cmd string, withPhoto bool) tgbotapi.Message {
	msg := tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: cid},
		Text: "/" + cmd,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd) + 1},
		},
	}
	if withPhoto {
		msg.ReplyToMessage = &tgbotapi.Message{
			Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		}
	}
	return msg
}

func textMessage(cid int64, text string) tgbotapi.Message {
	return tgbotapi.Message{Chat: &tgbotapi.Chat{ID: cid}, Text: text}
}

func handle(r *Router, msg tgbotapi.Message) {
	r.HandleUpdate(tgbotapi.Update{Message: &msg})
}

func TestSPTHappyPath(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, dir := newTestRouter(t, eng)
	const cid = int64(100)

	handle(r, commandMessage(cid, "spt", true))
	assert.Contains(t, bot.last(t), "tanggal surat")

	handle(r, textMessage(cid, "17/02/2025"))
	assert.Contains(t, bot.last(t), "email penerima")

	handle(r, textMessage(cid, "ulp@lampungbaratkab.go.id"))
	assert.Contains(t, bot.last(t), "pejabat pengadaan")

	handle(r, textMessage(cid, "Budi"))

	final := bot.last(t)
	assert.Contains(t, final, "docs.google.com/forms")
	assert.Contains(t, final, "Instansi: Kab. Lampung Barat")
	assert.Contains(t, final, "Pejabat Pengadaan: Budi Santoso")
	assert.Contains(t, final, "Tanggal Surat: 17/02/2025")
	assert.Contains(t, final, "12345678")

	_, ok := r.Sessions.Get(cid)
	assert.False(t, ok, "session ends after URL delivery")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp photo is released")
}

func TestSPTPPUsesTodayDate(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(101)

	handle(r, commandMessage(cid, "sptpp", true))
	assert.Contains(t, bot.last(t), "email penerima")

	handle(r, textMessage(cid, "ulp@lampungbaratkab.go.id"))
	handle(r, textMessage(cid, "Budi Santoso"))

	assert.Contains(t, bot.last(t), "Tanggal Surat: "+todayWIB())
}

func TestCommandWithoutPhotoReply(t *testing.T) {
	r, bot, _ := newTestRouter(t, &fakeEngine{})
	handle(r, commandMessage(200, "spt", false))
	assert.Equal(t, msgNeedPhoto, bot.last(t))
	_, ok := r.Sessions.Get(200)
	assert.False(t, ok)
}

func TestBatalCancelsSession(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, dir := newTestRouter(t, eng)
	const cid = int64(300)

	handle(r, commandMessage(cid, "spt", true))
	handle(r, commandMessage(cid, "batal", false))

	assert.Equal(t, "❌ Sesi dibatalkan.", bot.last(t))
	_, ok := r.Sessions.Get(cid)
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQualifyingPhotoReplyDoesNotOverwriteSession(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(400)

	handle(r, commandMessage(cid, "spt", true))
	handle(r, commandMessage(cid, "sptpp", true))

	assert.Equal(t, msgSessionActive, bot.last(t))
	sess, ok := r.Sessions.Get(cid)
	require.True(t, ok)
	assert.Equal(t, session.DocSPT, sess.Type)
}

func TestOtherCommandCancelsSession(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(500)

	handle(r, commandMessage(cid, "spt", true))
	handle(r, commandMessage(cid, "start", false))

	assert.True(t, bot.contains("❌ Sesi sebelumnya dibatalkan."))
	assert.Contains(t, bot.last(t), "Bot SPT Pengadaan")
	_, ok := r.Sessions.Get(cid)
	assert.False(t, ok)
}

func TestPokjaFullFlow(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(600)

	handle(r, commandMessage(cid, "sptpokja", true))
	assert.Contains(t, bot.last(t), "Berapa jumlah Pokja Pemilihan?")

	// text before the count is chosen is not consumed as a team name
	handle(r, textMessage(cid, "Pokja Pemilihan I"))
	assert.Contains(t, bot.last(t), "tombol di atas")

	r.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "team_2",
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: cid}},
	}})
	assert.Contains(t, bot.last(t), "Pokja Pemilihan ke-1")

	handle(r, textMessage(cid, "Pokja Pemilihan I"))
	assert.Contains(t, bot.last(t), "Pokja Pemilihan ke-2")

	handle(r, textMessage(cid, "qqqq"))
	assert.Contains(t, bot.last(t), "email penerima")

	handle(r, textMessage(cid, "ulp@lampungbaratkab.go.id"))

	final := bot.last(t)
	assert.Contains(t, final, "docs.google.com/forms")
	assert.Contains(t, final, "Pokja Pemilihan I")
	assert.Contains(t, final, teamNotFound, "unmatched team keeps a visible placeholder")
	assert.Contains(t, final, "Tanggal Surat: "+todayWIB())

	_, ok := r.Sessions.Get(cid)
	assert.False(t, ok)
}

func TestStaleTeamCountTapIgnored(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(650)

	handle(r, commandMessage(cid, "sptpokja", true))
	cb := func(data string) {
		r.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    data,
			Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: cid}},
		}})
	}
	cb("team_1")
	cb("team_3")

	sess, ok := r.Sessions.Get(cid)
	require.True(t, ok)
	assert.Equal(t, 1, sess.TeamCount)

	handle(r, textMessage(cid, "Pokja Pemilihan I"))
	assert.Contains(t, bot.last(t), "email penerima")
}

func TestNoTextInImage(t *testing.T) {
	eng := &fakeEngine{textErr: ocr.ErrNoText}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(700)

	handle(r, commandMessage(cid, "sptpp", true))
	handle(r, textMessage(cid, "ulp@lampungbaratkab.go.id"))
	handle(r, textMessage(cid, "Budi Santoso"))

	assert.Equal(t, "⚠️ Tidak ada teks yang ditemukan dalam gambar.", bot.last(t))
	_, ok := r.Sessions.Get(cid)
	assert.False(t, ok, "session ends even on extraction failure")
}

func TestInstitutionNotFound(t *testing.T) {
	answers := letterAnswers()
	answers[extract.LetterQuestions[0].Text] = "qqqq"
	eng := &fakeEngine{text: "isi surat", answers: answers}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(800)

	handle(r, commandMessage(cid, "sptpp", true))
	handle(r, textMessage(cid, "ulp@lampungbaratkab.go.id"))
	handle(r, textMessage(cid, "Budi Santoso"))

	assert.Equal(t, "⚠️ Instansi tidak ditemukan dalam daftar.", bot.last(t))
	assert.False(t, bot.contains("docs.google.com"), "no URL is built on a resolution failure")
}

func TestOfficerNotFound(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(900)

	handle(r, commandMessage(cid, "sptpp", true))
	handle(r, textMessage(cid, "ulp@lampungbaratkab.go.id"))
	handle(r, textMessage(cid, "qqqq"))

	assert.Equal(t, "⚠️ Pejabat pengadaan tidak ditemukan dalam daftar.", bot.last(t))
	assert.False(t, bot.contains("docs.google.com"), "no URL is built on a resolution failure")
}

func TestEmptyAnswerReprompts(t *testing.T) {
	eng := &fakeEngine{text: "isi surat", answers: letterAnswers()}
	r, bot, _ := newTestRouter(t, eng)
	const cid = int64(950)

	handle(r, commandMessage(cid, "spt", true))
	handle(r, textMessage(cid, "   "))

	assert.Contains(t, bot.last(t), "Jawaban tidak boleh kosong.")
	sess, ok := r.Sessions.Get(cid)
	require.True(t, ok)
	assert.Equal(t, 1, sess.Step, "step does not advance on an empty answer")
}
