package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"LetHimCook-App/internal/domain/model"
	"LetHimCook-App/internal/domain/repository"
)

// contentGenerator はプロンプトからテキストを生成する
type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// geminiVenueJudge はGemini APIを使用してVenueJudgeProviderを実装
type geminiVenueJudge struct {
	generator contentGenerator
	logger    *zap.Logger
}

// NewGeminiVenueJudge は新しいgeminiVenueJudgeインスタンスを作成
func NewGeminiVenueJudge(client *GeminiClient, logger *zap.Logger) repository.VenueJudgeProvider {
	return newVenueJudge(client, logger)
}

func newVenueJudge(generator contentGenerator, logger *zap.Logger) *geminiVenueJudge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &geminiVenueJudge{generator: generator, logger: logger}
}

// ValidateBatch は店舗のバッチを判定させ、生の応答テキストを返す
func (j *geminiVenueJudge) ValidateBatch(ctx context.Context, summaries []model.VenueSummary, cuisine string) (string, error) {
	prompt := buildJudgePrompt(summaries, cuisine)

	j.logger.Debug("🤖 Gemini APIで店舗を判定中", zap.Int("venues", len(summaries)), zap.String("cuisine", cuisine))

	text, err := j.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("Gemini API呼び出しエラー: %w", err)
	}
	return text, nil
}

// buildJudgePrompt は店舗判定用のプロンプトを構築
func buildJudgePrompt(summaries []model.VenueSummary, cuisine string) string {
	var b strings.Builder
	b.WriteString("You are verifying restaurant listings returned by map search APIs.\n")
	b.WriteString("For each venue decide whether it is a currently operating food or drink venue")
	if c := strings.TrimSpace(cuisine); c != "" {
		fmt.Fprintf(&b, " that serves %s food", c)
	}
	b.WriteString(", and how reliable its address is.\n\n")

	b.WriteString("Venues:\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%d. %s\n", s.Index, s.Name)
		if len(s.Categories) > 0 {
			fmt.Fprintf(&b, "   Categories: %s\n", strings.Join(s.Categories, ", "))
		}
		if s.Address != "" {
			fmt.Fprintf(&b, "   Address: %s\n", s.Address)
		}
		fmt.Fprintf(&b, "   Coordinates: %.6f, %.6f\n", s.Coordinates.Lat, s.Coordinates.Lng)
		if s.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", s.Description)
		}
	}

	b.WriteString(`
Answer with one block per venue, in this exact format and nothing else:

VENUE <number>
STATUS: YES | PROBABLY | NO
OPERATIONAL_CONFIDENCE: <0-10>
ADDRESS_QUALITY: <0-10>
COORDINATES: <lat>, <lng> (only if you know better coordinates)
LOCATION: <best known street address>
RATIONALE: <one sentence>
`)
	return b.String()
}
