// Package generation drives the LLM conversation for answering queries,
// including the bounded tool-dispatch loop between the model and the
// search tools.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = openai.ChatModelGPT4o

	// DefaultMaxRounds bounds how many rounds of tool calls the model may
	// make before it is forced to answer.
	DefaultMaxRounds = 2

	maxTokens = 800
)

// systemPrompt steers the model toward concise, tool-grounded answers about
// course materials.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to tools for course information.

Tool usage:
- Content search tool: use for questions about specific course content or detailed educational materials
- Course outline tool: use when users ask for course outlines, structure, lesson lists, or a complete course overview
- You can make multiple rounds of tool calls to gather comprehensive information, for example fetching a course outline first and then searching within a lesson it names
- Synthesize tool results into accurate, fact-based responses
- If a tool yields no results, state this clearly without offering alternatives

Response protocol:
- General knowledge questions: answer from existing knowledge without tools
- Course content questions: use the content search tool first, then answer
- Course outline questions: use the course outline tool first, then answer
- Provide direct answers only; no reasoning process, tool explanations, or mention of tool results

All responses must be brief, clear and educational. Provide only the direct answer to what was asked.`

// Completions is the slice of the OpenAI client the generator uses.
// openai.Client's Chat.Completions service satisfies it; tests script it.
type Completions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ToolRunner dispatches tool calls requested by the model. Execute never
// fails; tool errors come back as result strings for the model to explain.
type ToolRunner interface {
	Definitions() []openai.ChatCompletionFunctionToolParam
	Execute(ctx context.Context, name string, args json.RawMessage) string
}

// Generator produces answers via chat completions, letting the model call
// search tools for up to a fixed number of rounds.
type Generator struct {
	completions Completions
	model       string
	maxRounds   int
}

// New creates a generator. Empty model or non-positive maxRounds select the
// defaults.
func New(completions Completions, model string, maxRounds int) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Generator{completions: completions, model: model, maxRounds: maxRounds}
}

// Generate answers a query, optionally grounded by prior conversation
// history and the given tools. The model may request tool calls for up to
// maxRounds rounds; after that one final call is made without tools so the
// loop always terminates with an answer.
func (g *Generator) Generate(ctx context.Context, query, history string, tools ToolRunner) (string, error) {
	system := systemPrompt
	if history != "" {
		system = systemPrompt + "\n\nPrevious conversation:\n" + history
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(query),
	}

	var defs []openai.ChatCompletionToolUnionParam
	if tools != nil {
		for _, d := range tools.Definitions() {
			defs = append(defs, openai.ChatCompletionToolUnionParam{OfFunction: &d})
		}
	}

	for round := 1; round <= g.maxRounds; round++ {
		params := g.baseParams(messages)
		params.Tools = defs

		resp, err := g.completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		msg, err := firstMessage(resp)
		if err != nil {
			return "", err
		}

		if tools == nil || len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		slog.Debug("tool round", "round", round, "calls", len(msg.ToolCalls))
		messages = append(messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			slog.Debug("executing tool", "name", tc.Function.Name)
			result := tools.Execute(ctx, tc.Function.Name, json.RawMessage(tc.Function.Arguments))
			messages = append(messages, openai.ToolMessage(result, tc.ID))
		}
	}

	// Rounds exhausted with tool results pending. A final call without
	// tools forces the model to answer from what it has gathered.
	resp, err := g.completions.New(ctx, g.baseParams(messages))
	if err != nil {
		return "", fmt.Errorf("final chat completion failed: %w", err)
	}
	msg, err := firstMessage(resp)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (g *Generator) baseParams(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(maxTokens),
	}
}

func firstMessage(resp *openai.ChatCompletion) (openai.ChatCompletionMessage, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message, nil
}
