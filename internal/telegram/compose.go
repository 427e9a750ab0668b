package telegram

import (
	"fmt"
	"strings"

	"github.com/deniganda/Cek-KodeRUP/internal/form"
)

func sptSummary(f form.Fields) string {
	codes := strings.Join(f.RUPCodes, ", ")
	if codes == "" {
		codes = "Tidak ada"
	}
	var b strings.Builder
	b.WriteString("📜 <b>Data yang Diekstrak:</b>\n<blockquote>")
	fmt.Fprintf(&b, "📌 Instansi: %s\n", f.Institution)
	fmt.Fprintf(&b, "📌 Nomor Surat: %s\n", f.LetterNumber)
	fmt.Fprintf(&b, "📌 Perihal: %s\n", f.Subject)
	fmt.Fprintf(&b, "📌 Tanggal Surat: %s\n", f.LetterDate)
	fmt.Fprintf(&b, "📌 Email Penerima: %s\n", f.Email)
	fmt.Fprintf(&b, "📌 Pejabat Pengadaan: %s\n", f.Officer)
	fmt.Fprintf(&b, "📌 Kode RUP: %s", codes)
	b.WriteString("</blockquote>")
	return b.String()
}

func pokjaSummary(f form.Fields) string {
	teams := strings.Join(f.TeamNames, ", ")
	if teams == "" {
		teams = "Tidak ada"
	}
	var b strings.Builder
	b.WriteString("📜 <b>Data yang Diekstrak:</b>\n<blockquote>")
	fmt.Fprintf(&b, "📌 Instansi: %s\n", f.Institution)
	fmt.Fprintf(&b, "📌 Nomor Surat: %s\n", f.LetterNumber)
	fmt.Fprintf(&b, "📌 Perihal: %s\n", f.Subject)
	fmt.Fprintf(&b, "📌 Tanggal Surat: %s\n", f.LetterDate)
	fmt.Fprintf(&b, "📌 Email Penerima: %s\n", f.Email)
	fmt.Fprintf(&b, "📌 Pokja Pemilihan: %s\n", teams)
	fmt.Fprintf(&b, "📌 Kode RUP: %s", f.RUPCodesRaw)
	b.WriteString("</blockquote>")
	return b.String()
}
