package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

// ChatGateway is the synchronous surface of the LLM proxy: one system
// prompt, one user prompt, one text response. Network failures, non-2xx
// statuses and malformed bodies all come back as errors.
type ChatGateway interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// generatorSystemPrompt pins the model to a strict JSON tool definition.
// The contract here mirrors what the backends execute, so changes must stay
// in lockstep with them.
const generatorSystemPrompt = `You are a tool author for an automation engine. Given a user's intent, write one new tool that accomplishes it.

Respond with ONLY a valid JSON object, no prose before or after, in exactly this shape:
{
  "name": "snake_case_tool_name",
  "description": "one sentence describing what the tool does",
  "keywords": "space separated search keywords",
  "language": "script",
  "parameters_schema": {"param_name": "string"},
  "code": "the complete tool source"
}

Rules:
- "language" must be one of: "script" (Python 3), "shell" (bash), "native" (Go).
- script tools receive a dict named params and print their result to stdout, as JSON when structured.
- shell tools read each parameter from an environment variable named ARTIFICER_PARAM_<NAME> (uppercased) and write to stdout.
- native tools are a Go package main defining: func Run(params map[string]any) (any, error).
- parameters_schema maps each parameter name to a plain type word such as "string", "number" or "boolean".
- Prefer "script" unless the intent clearly calls for shell or native Go.
- The code must be complete and runnable. No placeholders, no pseudo code.`

const maxIntentPromptLen = 2000

// Generator drafts, validates and registers new tools from unresolved
// intents. It never retries: one gateway call, one verdict.
type Generator struct {
	gateway     ChatGateway
	registry    *RegistryService
	autoApprove bool
	logger      *slog.Logger
}

// NewGenerator creates a Generator. autoApprove is the single global policy
// flag deciding whether generated tools are immediately executable.
func NewGenerator(gateway ChatGateway, registry *RegistryService, autoApprove bool, logger *slog.Logger) *Generator {
	return &Generator{gateway: gateway, registry: registry, autoApprove: autoApprove, logger: logger}
}

// generatedTool is the JSON shape the model is contractually held to.
type generatedTool struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Keywords         string            `json:"keywords"`
	Language         string            `json:"language"`
	ParametersSchema map[string]string `json:"parameters_schema"`
	Code             string            `json:"code"`
}

// Generate asks the gateway for a tool definition for the intent, validates
// it, and stores it. Gateway failures map to GenerationFailed; a response
// that cannot be parsed into a usable definition maps to GenerationInvalid.
// A name collision with an existing tool is a generation failure: curated
// tools must never be shadowed by a hallucinated common name.
func (g *Generator) Generate(ctx context.Context, intent string, params map[string]any) (*tool.Tool, error) {
	raw, err := g.gateway.Chat(ctx, generatorSystemPrompt, buildUserPrompt(intent, params))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	var gen generatedTool
	if err := json.Unmarshal([]byte(extractJSON(raw)), &gen); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", domain.ErrGenerationInvalid, err)
	}

	name := tool.SanitizeName(gen.Name)
	if name == "" || strings.TrimSpace(gen.Code) == "" {
		return nil, fmt.Errorf("%w: name and code are required", domain.ErrGenerationInvalid)
	}
	lang := tool.Language(gen.Language)
	if !lang.Valid() {
		return nil, fmt.Errorf("%w: unknown language %q", domain.ErrGenerationInvalid, gen.Language)
	}

	t := &tool.Tool{
		Name:          name,
		Description:   gen.Description,
		Keywords:      gen.Keywords,
		ParamsSchema:  gen.ParametersSchema,
		Code:          gen.Code,
		Language:      lang,
		IsAIGenerated: true,
		IsApproved:    g.autoApprove,
	}
	if err := g.registry.Insert(ctx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			return nil, fmt.Errorf("%w: generated name %q already exists", domain.ErrGenerationFailed, name)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	g.logger.Info("tool generated", "tool", name, "language", lang, "auto_approved", g.autoApprove)
	return t, nil
}

func buildUserPrompt(intent string, params map[string]any) string {
	var sb strings.Builder
	sb.WriteString("Intent: ")
	sb.WriteString(sanitizePromptInput(intent))
	if len(params) > 0 {
		if data, err := json.Marshal(params); err == nil {
			sb.WriteString("\n\nThe caller supplied these parameters, design the tool to accept them:\n")
			sb.WriteString(string(data))
		}
	}
	return sb.String()
}

// sanitizePromptInput strips control characters and role markers from
// caller text before it is embedded in the prompt, and caps its length.
func sanitizePromptInput(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || r >= 0x20 {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	for _, marker := range []string{"system:", "assistant:", "user:"} {
		out = strings.ReplaceAll(out, marker, "")
		out = strings.ReplaceAll(out, strings.ToUpper(marker), "")
	}
	if len(out) > maxIntentPromptLen {
		cut := maxIntentPromptLen
		// Back off to a rune start so the cap never emits broken UTF-8.
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}

// extractJSON peels the model's framing off the JSON payload: a leading
// fenced code block when present, then anything outside the outermost
// braces. Only a fence at the very start counts; a response that is already
// bare JSON may legitimately carry fences inside its code field.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		if j := strings.Index(s, "\n"); j >= 0 {
			s = s[j+1:]
		}
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}
