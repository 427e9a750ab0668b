// Package extract derives structured letter fields from OCR text by asking the
// LLM a fixed battery of short questions, one per field.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/deniganda/Cek-KodeRUP/internal/ocr"
)

type FieldKey string

const (
	FieldInstitution  FieldKey = "instansi"
	FieldLetterNumber FieldKey = "nomor_surat"
	FieldSubject      FieldKey = "perihal"
	FieldRUPCodes     FieldKey = "kode_rup"
)

type Question struct {
	Key  FieldKey
	Text string
}

// LetterQuestions is the battery for single-officer letters; RUP codes come
// back comma-separated so they can be split into list slots.
var LetterQuestions = []Question{
	{FieldInstitution, "Sebutkan instansi pengirim surat?"},
	{FieldLetterNumber, "Sebutkan nomor surat?"},
	{FieldSubject, "Sebutkan perihal surat?"},
	{FieldRUPCodes, "Sebutkan semua kode RUP yang ada, pisahkan dengan koma jika lebih dari satu?"},
}

// PokjaLetterQuestions is the battery for team letters; the RUP answer is
// forwarded to the form as a single field.
var PokjaLetterQuestions = []Question{
	{FieldInstitution, "Sebutkan instansi pengirim surat?"},
	{FieldLetterNumber, "Sebutkan nomor surat?"},
	{FieldSubject, "Sebutkan perihal surat?"},
	{FieldRUPCodes, "Sebutkan semua kode RUP yang ada?"},
}

// Result maps field keys to raw extracted strings. Values are opaque: no
// type or format validation happens at this layer.
type Result map[FieldKey]string

type Extractor struct {
	Engine ocr.Engine
}

// Run asks every question in order against sourceText. Empty source text
// short-circuits with ocr.ErrNoText before any question is issued. A failed
// question aborts the whole battery.
func (e *Extractor) Run(ctx context.Context, sourceText string, questions []Question) (Result, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, ocr.ErrNoText
	}
	res := make(Result, len(questions))
	for _, q := range questions {
		ans, err := e.Engine.Answer(ctx, sourceText, q.Text)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", q.Key, err)
		}
		res[q.Key] = strings.TrimSpace(ans)
	}
	return res, nil
}

// SplitRUPCodes splits a comma-separated RUP answer into trimmed codes,
// dropping empty elements.
func SplitRUPCodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
