package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/deniganda/Cek-KodeRUP/internal/extract"
	"github.com/deniganda/Cek-KodeRUP/internal/form"
	"github.com/deniganda/Cek-KodeRUP/internal/match"
	"github.com/deniganda/Cek-KodeRUP/internal/ocr"
	"github.com/deniganda/Cek-KodeRUP/internal/session"
	"github.com/deniganda/Cek-KodeRUP/internal/util"
)

// teamNotFound is kept as a visible placeholder in the team-name slots; one
// unmatched team does not sink the submission.
const teamNotFound = "⚠️ Pokja Pemilihan tidak ditemukan dalam daftar."

const extractCacheTTL = 30 * 24 * time.Hour

var wib = time.FixedZone("WIB", 7*60*60)

func todayWIB() string { return time.Now().In(wib).Format("02/01/2006") }

// consumeAnswer applies one inbound text message to the session's current
// step. Validation is non-emptiness only; dates and emails stay opaque
// strings.
func (r *Router) consumeAnswer(sess *session.Session, msg tgbotapi.Message) {
	cid := sess.ChatID
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		r.send(cid, "Jawaban tidak boleh kosong. "+r.prompt(sess))
		return
	}

	switch sess.Type {
	case session.DocSPT:
		switch sess.Step {
		case 1:
			sess.Values[session.FieldLetterDate] = text
		case 2:
			sess.Values[session.FieldEmail] = text
		default:
			sess.Values[session.FieldOfficer] = text
			r.finalize(sess)
			return
		}
	case session.DocSPTPP:
		switch sess.Step {
		case 1:
			sess.Values[session.FieldEmail] = text
		default:
			sess.Values[session.FieldOfficer] = text
			r.finalize(sess)
			return
		}
	case session.DocPokja:
		if sess.TeamCount == 0 {
			r.send(cid, "Pilih jumlah Pokja Pemilihan dengan tombol di atas.")
			return
		}
		if len(sess.TeamNames) < sess.TeamCount {
			sess.TeamNames = append(sess.TeamNames, text)
		} else {
			sess.Values[session.FieldEmail] = text
			r.finalize(sess)
			return
		}
	}

	sess.Step++
	r.Sessions.Touch(sess)
	r.send(cid, r.prompt(sess))
}

// prompt renders the question for the session's current state.
func (r *Router) prompt(sess *session.Session) string {
	switch sess.Type {
	case session.DocSPT:
		switch sess.Step {
		case 1:
			return "Masukkan tanggal surat (contoh: 17/02/2025):"
		case 2:
			return "Masukkan email penerima:"
		default:
			return "Masukkan nama pejabat pengadaan:"
		}
	case session.DocSPTPP:
		if sess.Step == 1 {
			return "Masukkan email penerima:"
		}
		return "Masukkan nama pejabat pengadaan:"
	default:
		if sess.TeamCount == 0 {
			return "Pilih jumlah Pokja Pemilihan dengan tombol di atas."
		}
		if len(sess.TeamNames) < sess.TeamCount {
			return fmt.Sprintf("Masukkan nama Pokja Pemilihan ke-%d:", len(sess.TeamNames)+1)
		}
		return "Masukkan email penerima:"
	}
}

// finalize runs extraction, resolution and URL assembly. The session is
// deleted on every outcome; deletion releases the temp image.
func (r *Router) finalize(sess *session.Session) {
	cid := sess.ChatID
	defer r.Sessions.End(cid)

	r.send(cid, "⏳ Memproses dokumen...")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	fields, err := r.extractFields(ctx, sess)
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			r.send(cid, "⚠️ Tidak ada teks yang ditemukan dalam gambar.")
			return
		}
		r.Log.Error("extract", zap.Int64("chat", cid), zap.Error(err))
		r.send(cid, msgGenericError)
		return
	}

	inst, err := match.Resolve(fields[extract.FieldInstitution], r.Institutions, match.PartialRatio, match.ThresholdInstitution)
	if err != nil {
		r.send(cid, "⚠️ Instansi tidak ditemukan dalam daftar.")
		return
	}

	f := form.Fields{
		Institution:  inst.Canonical,
		LetterNumber: fields[extract.FieldLetterNumber],
		Subject:      fields[extract.FieldSubject],
		Email:        sess.Values[session.FieldEmail],
	}

	var formURL, summary string
	switch sess.Type {
	case session.DocPokja:
		f.LetterDate = todayWIB()
		f.RUPCodesRaw = fields[extract.FieldRUPCodes]
		for _, raw := range sess.TeamNames {
			m, err := match.Resolve(raw, r.Officials, match.PartialRatio, match.ThresholdTeam)
			if err != nil {
				f.TeamNames = append(f.TeamNames, teamNotFound)
				continue
			}
			f.TeamNames = append(f.TeamNames, m.Canonical)
		}
		formURL = form.BuildPokjaURL(f)
		summary = pokjaSummary(f)
	default:
		officer, err := match.Resolve(sess.Values[session.FieldOfficer], r.Officials, match.PartialRatio, match.ThresholdOfficer)
		if err != nil {
			r.send(cid, "⚠️ Pejabat pengadaan tidak ditemukan dalam daftar.")
			return
		}
		f.Officer = officer.Canonical
		if sess.Type == session.DocSPT {
			f.LetterDate = sess.Values[session.FieldLetterDate]
		} else {
			f.LetterDate = todayWIB()
		}
		f.RUPCodes = extract.SplitRUPCodes(fields[extract.FieldRUPCodes])
		formURL = form.BuildSPTURL(f)
		summary = sptSummary(f)
	}

	r.sendHTML(cid, summary+"\n\n🔗 <b>Tautan Google Form:</b>\n<blockquote expandable>"+formURL+"</blockquote>")
	r.Log.Info("form url generated", zap.Int64("chat", cid), zap.String("type", string(sess.Type)))

	if r.Submissions != nil {
		if err := r.Submissions.Insert(ctx, cid, string(sess.Type), f.Institution,
			form.CleanLetterNumber(f.LetterNumber), formURL); err != nil {
			r.Log.Warn("submission log", zap.Error(err))
		}
	}
}

// extractFields reads the stored photo, consults the extraction cache, and
// otherwise runs OCR plus the question battery.
func (r *Router) extractFields(ctx context.Context, sess *session.Session) (extract.Result, error) {
	img, err := os.ReadFile(sess.ImagePath)
	if err != nil {
		return nil, err
	}
	questions := extract.LetterQuestions
	if sess.Type == session.DocPokja {
		questions = extract.PokjaLetterQuestions
	}
	hash := util.SHA256Hex(img)

	if r.Extracts != nil {
		if cached, err := r.Extracts.Find(ctx, hash, string(sess.Type), r.Engine.Name(), r.Engine.GetModel(), extractCacheTTL); err == nil {
			return cached, nil
		}
	}

	text, err := r.Engine.ExtractText(ctx, img, util.SniffMimeHTTP(img))
	if err != nil {
		return nil, err
	}
	ex := &extract.Extractor{Engine: r.Engine}
	res, err := ex.Run(ctx, text, questions)
	if err != nil {
		return nil, err
	}

	if r.Extracts != nil {
		if err := r.Extracts.Upsert(ctx, sess.ChatID, hash, string(sess.Type), r.Engine.Name(), r.Engine.GetModel(), text, res); err != nil {
			r.Log.Warn("extract cache", zap.Error(err))
		}
	}
	return res, nil
}
