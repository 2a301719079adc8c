package a2a

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/zhengjr9/gemini-gateway/internal/gateway"
	"github.com/zhengjr9/gemini-gateway/internal/httputil"
)

// Pipeline runs one single-shot generation; *gateway.Service satisfies it.
type Pipeline interface {
	Generate(ctx context.Context, req gjson.Result) (*gateway.Response, error)
}

// AgentConfig holds the configuration for the Gemini-backed A2A agent.
type AgentConfig struct {
	// Name is the agent name exposed via A2A AgentCard.
	Name string
	// Description is exposed via A2A AgentCard.
	Description string
	// Pipeline is the gateway pipeline shared with the HTTP endpoint.
	Pipeline Pipeline
}

// New returns an agent.Agent whose Run logic sends the user's text through
// the gateway pipeline and answers with the extracted text.
func New(cfg AgentConfig) (agent.Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("a2a agent: Name must not be empty")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("a2a agent: Pipeline must not be nil")
	}

	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         runFunc(cfg),
	})
}

// runFunc returns the Run closure that drives one agent invocation.
func runFunc(cfg AgentConfig) func(agent.InvocationContext) iter.Seq2[*session.Event, error] {
	return func(ctx agent.InvocationContext) iter.Seq2[*session.Event, error] {
		return func(yield func(*session.Event, error) bool) {
			query := extractQuery(ctx.UserContent())
			if query == "" {
				ev := session.NewEvent(ctx.InvocationID())
				ev.Author = cfg.Name
				ev.LLMResponse = model.LLMResponse{
					Content: textContent("(empty input)"),
				}
				yield(ev, nil)
				return
			}

			resp, err := cfg.Pipeline.Generate(ctx, httputil.ObjectFromValue(map[string]any{"prompt": query}))
			if err != nil {
				yield(nil, fmt.Errorf("gemini request failed: %w", err))
				return
			}

			// One final (non-partial) event so that IsFinalResponse() returns
			// true and the runner closes the invocation.
			finalEv := session.NewEvent(ctx.InvocationID())
			finalEv.Author = cfg.Name
			finalEv.Branch = ctx.Branch()
			finalEv.LLMResponse = model.LLMResponse{
				Content: textContent(answerText(resp)),
				Partial: false,
			}
			yield(finalEv, nil)
		}
	}
}

// answerText is the text shown to the A2A caller; an empty answer is
// replaced by its note.
func answerText(resp *gateway.Response) string {
	if resp.Text != "" {
		return resp.Text
	}
	return "(no answer: " + resp.Note + ")"
}

// extractQuery pulls the plain-text content from the genai.Content that ADK
// puts in the InvocationContext when the caller sends a message.
func extractQuery(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// textContent is a small helper that wraps a string into a *genai.Content.
func textContent(text string) *genai.Content {
	return &genai.Content{
		Role:  genai.RoleModel,
		Parts: []*genai.Part{{Text: text}},
	}
}
