package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deniganda/Cek-KodeRUP/internal/ocr"
)

const extractPrompt = "Ekstrak teks dari gambar ini dalam Bahasa Indonesia. " +
	"Jangan beri tambahan teks lain, hanya ekstrak teksnya saja."

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) ExtractText(ctx context.Context, image []byte, mime string) (string, error) {
	out, err := e.generate(ctx,
		genai.Text(extractPrompt),
		&genai.Blob{MIMEType: mime, Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini extract: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ocr.ErrNoText
	}
	return strings.TrimSpace(out), nil
}

func (e *Engine) Answer(ctx context.Context, sourceText, question string) (string, error) {
	prompt := fmt.Sprintf("Jawab dengan singkat berdasarkan teks ini:\n\n%q\n\n%s", sourceText, question)
	out, err := e.generate(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Engine) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(0)}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
