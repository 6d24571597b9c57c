package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"DialogHarness/internal/dialog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"go.uber.org/zap"
)

const instructions = "You are the system side of a task-oriented dialogue. " +
	"Rewrite the given dialogue acts as one short, natural reply to the user. " +
	"Mention every value exactly as given and do not add information."

// Ensure interface compliance
var _ dialog.Generator = (*Generator)(nil)

// Generator озвучивает диалоговые акты через OpenAI Responses API.
type Generator struct {
	client *openai.Client
	model  openai.ChatModel
	logger *zap.SugaredLogger
}

func New(client *openai.Client, model string, logger *zap.SugaredLogger) *Generator {
	m := openai.ChatModel(strings.TrimSpace(model))
	if m == "" {
		m = openai.ChatModelGPT4o
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Generator{client: client, model: m, logger: logger}
}

// Generate реализует dialog.Generator.
func (g *Generator) Generate(ctx context.Context, prediction any) (string, error) {
	if g.client == nil {
		return "", errors.New("nil openai client")
	}
	acts, err := dialog.ParseActs(prediction)
	if err != nil {
		return "", err
	}
	if len(acts) == 0 {
		return "", errors.New("llm nlg: no dialog acts")
	}

	resp, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{OfInputText: &responses.ResponseInputTextParam{Text: instructions}},
					},
					responses.EasyInputMessageRoleSystem,
				),
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						{OfInputText: &responses.ResponseInputTextParam{Text: Prompt(acts)}},
					},
					responses.EasyInputMessageRoleUser,
				),
			},
		},
	})
	if err != nil {
		g.logger.Errorw("OpenAI generation failed", "error", err)
		return "", fmt.Errorf("llm nlg: %w", err)
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", errors.New("llm nlg: empty output")
	}
	return out, nil
}

// Prompt перечисляет акты по одному в строке: "Hotel-Inform: Area = north".
func Prompt(acts []dialog.Act) string {
	var b strings.Builder
	b.WriteString("Dialogue acts:\n")
	for _, a := range acts {
		b.WriteString("- ")
		b.WriteString(a.Key())
		if a.Slot != dialog.None {
			fmt.Fprintf(&b, ": %s", a.Slot)
			if a.Value != dialog.None && a.Value != "?" {
				fmt.Fprintf(&b, " = %s", a.Value)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
