package ocr

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultGeminiModel = "gemini-1.5-flash"

	extractPrompt = `Transcribe all text visible in this job posting image.
Keep the original language and line breaks. Output only the transcribed text, no commentary.
If the image contains no text, output nothing.`
)

// GeminiExtractor reads image text with a Gemini vision model.
type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ocr: gemini api key is empty")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ocr: gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &GeminiExtractor{client: client, model: model}, nil
}

func (g *GeminiExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.ImageData(imageFormat(mimeType), image), genai.Text(extractPrompt))
	if err != nil {
		return "", fmt.Errorf("ocr: gemini generate: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String(), nil
}

func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}

// imageFormat maps "image/png; charset=..." to "png" as genai.ImageData expects.
func imageFormat(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return "jpeg"
	}
	return strings.TrimPrefix(mt, "image/")
}
