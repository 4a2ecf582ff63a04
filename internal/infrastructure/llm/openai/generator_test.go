package openai

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared/constant"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type fakeChatService struct {
	response   *openai.ChatCompletion
	err        error
	lastParams openai.ChatCompletionNewParams
	calls      int
}

var fakeBaseURL = "https://fake-llm-provider.ai/api/v1"

func (f *fakeChatService) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.calls++
	f.lastParams = body
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func completionWith(content, finishReason, refusal string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		ID:      "gen-1",
		Created: time.Now().Unix(),
		Model:   "test-model",
		Object:  constant.ValueOf[constant.ChatCompletion](),
		Choices: []openai.ChatCompletionChoice{
			{
				FinishReason: finishReason,
				Index:        0,
				Logprobs: openai.ChatCompletionChoiceLogprobs{
					Content: []openai.ChatCompletionTokenLogprob{},
					Refusal: []openai.ChatCompletionTokenLogprob{},
				},
				Message: openai.ChatCompletionMessage{
					Content: content,
					Refusal: refusal,
					Role:    constant.ValueOf[constant.Assistant](),
				},
			},
		},
	}
}

func newTestGenerator(t *testing.T, chat *fakeChatService) *generator {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := &Client{chat: chat, logger: logger, baseURL: fakeBaseURL}

	gen, err := NewGenerator(GeneratorOptions{Client: client, Model: "llm-stub-model"})
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	return gen.(*generator)
}

func TestGeneratorReturnsCleanedHTML(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{response: completionWith("```html\n<section class=\"py-20\"><h1>Coffee</h1></section>\n```", "stop", "")}
	gen := newTestGenerator(t, chat)

	html, err := gen.Generate(context.Background(), "  a coffee subscription  ")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	const expected = `<section class="py-20"><h1>Coffee</h1></section>`
	if html != expected {
		t.Fatalf("expected html %q, got %q", expected, html)
	}

	if chat.lastParams.Model != "llm-stub-model" {
		t.Fatalf("expected model llm-stub-model, got %s", chat.lastParams.Model)
	}

	if len(chat.lastParams.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chat.lastParams.Messages))
	}

	if chat.lastParams.Temperature != openai.Float(defaultGeneratorTemperature) {
		t.Fatalf("expected default temperature %v", defaultGeneratorTemperature)
	}

	payload, err := json.Marshal(chat.lastParams)
	if err != nil {
		t.Fatalf("marshalling params failed: %v", err)
	}
	if !strings.Contains(string(payload), "Create a professional landing page for: a coffee subscription") {
		t.Fatalf("expected user message to carry the trimmed prompt, got %s", payload)
	}
}

func TestGeneratorUnwrapsFullDocuments(t *testing.T) {
	t.Parallel()

	document := "```html\n<!DOCTYPE html><html><head><title>x</title></head><body>\n<section class=\"hero\"><h1>Bikes</h1></section>\n</body></html>\n```"
	gen := newTestGenerator(t, &fakeChatService{response: completionWith(document, "stop", "")})

	html, err := gen.Generate(context.Background(), "a bike shop")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	const expected = `<section class="hero"><h1>Bikes</h1></section>`
	if html != expected {
		t.Fatalf("expected body fragment %q, got %q", expected, html)
	}
}

func TestUnwrapDocumentKeepsFragments(t *testing.T) {
	t.Parallel()

	const fragment = `<div class="p-4"><p>Body text mentions html and body</p></div>`
	got, err := unwrapDocument(fragment)
	if err != nil {
		t.Fatalf("unwrapDocument returned error: %v", err)
	}
	if got != fragment {
		t.Fatalf("expected fragment unchanged, got %q", got)
	}

	empty, err := unwrapDocument("<html><head><title>only head</title></head><body>  </body></html>")
	if err != nil {
		t.Fatalf("unwrapDocument returned error: %v", err)
	}
	if empty != "" {
		t.Fatalf("expected empty body to yield empty fragment, got %q", empty)
	}
}

func TestGeneratorRejectsUnusableResponses(t *testing.T) {
	t.Parallel()

	cases := map[string]*openai.ChatCompletion{
		"no choices":     {Choices: []openai.ChatCompletionChoice{}},
		"content filter": completionWith("<div>blocked</div>", "content_filter", ""),
		"refusal":        completionWith("", "stop", "I can't help with that"),
		"empty":          completionWith("   ", "stop", ""),
		"only fences":    completionWith("```html\n```", "stop", ""),
		"empty document": completionWith("<html><body></body></html>", "stop", ""),
	}

	for name, response := range cases {
		name, response := name, response
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			gen := newTestGenerator(t, &fakeChatService{response: response})
			if _, err := gen.Generate(context.Background(), "a bakery"); err == nil {
				t.Fatalf("expected error for %s response", name)
			}
		})
	}
}

func TestGeneratorPropagatesAPIError(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{err: eris.New("api failure")}
	gen := newTestGenerator(t, chat)

	if _, err := gen.Generate(context.Background(), "a bakery"); err == nil {
		t.Fatalf("expected error when chat service returns failure")
	}
}

func TestGeneratorRequiresPrompt(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{response: completionWith("<div></div>", "stop", "")}
	gen := newTestGenerator(t, chat)

	if _, err := gen.Generate(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank prompt")
	}
	if chat.calls != 0 {
		t.Fatalf("expected no upstream call for blank prompt, got %d", chat.calls)
	}
}

func TestNewGeneratorValidatesOptions(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(GeneratorOptions{Model: "m"}); err == nil {
		t.Fatalf("expected error without client")
	}

	client := &Client{chat: &fakeChatService{}, baseURL: fakeBaseURL}
	if _, err := NewGenerator(GeneratorOptions{Client: client, Model: "  "}); err == nil {
		t.Fatalf("expected error without model")
	}
}

func TestCleanGeneratedHTMLStripsEveryFence(t *testing.T) {
	t.Parallel()

	input := "Here you go:\n```html\n<div>One</div>\n```\n```\n<div>Two</div>\n```"
	cleaned := CleanGeneratedHTML(input)

	if strings.Contains(cleaned, "```") {
		t.Fatalf("expected code fences to be removed, got %q", cleaned)
	}
	if !strings.Contains(cleaned, "<div>One</div>") || !strings.Contains(cleaned, "<div>Two</div>") {
		t.Fatalf("expected both fragments to survive, got %q", cleaned)
	}
	if cleaned != strings.TrimSpace(cleaned) {
		t.Fatalf("expected surrounding whitespace trimmed, got %q", cleaned)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientOptions{}); err == nil {
		t.Fatalf("expected error without api key")
	}

	client, err := NewClient(ClientOptions{APIKey: "key"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if client.BaseURL() != openRouterBaseURL {
		t.Fatalf("expected default base url %q, got %q", openRouterBaseURL, client.BaseURL())
	}
}

func TestGeneratorLive(t *testing.T) {
	// Needs a .env next to this file, see .env.example.
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		t.Logf("%v", eris.Wrap(err, "loading .env file"))
	}

	if os.Getenv("LLM_LIVE_TEST") != "1" {
		t.Skip("live generator test disabled; set LLM_LIVE_TEST=1 to enable")
	}

	apiKey := strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if apiKey == "" {
		t.Skip("LLM_API_KEY is required for the live generator test")
	}

	baseURL := strings.TrimSpace(os.Getenv("LLM_ENDPOINT"))
	if baseURL == "" {
		t.Skip("LLM_ENDPOINT is required for the live generator test")
	}

	client, err := NewClient(ClientOptions{APIKey: apiKey, BaseURL: baseURL, Logger: logger})
	if err != nil {
		t.Fatalf("failed to build live client: %v", err)
	}

	model := ""
	modelCandidates := strings.TrimSpace(os.Getenv("LLM_MODELS"))
	if modelCandidates != "" {
		trimmed := strings.Trim(modelCandidates, "[]")
		for _, candidate := range strings.Split(trimmed, ",") {
			candidate = strings.Trim(strings.TrimSpace(candidate), "\"'")
			if candidate != "" {
				model = candidate
				break
			}
		}
	}

	gen, err := NewGenerator(GeneratorOptions{Client: client, Model: model})
	if err != nil {
		t.Fatalf("failed to create live generator: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	html, err := gen.Generate(ctx, "a neighbourhood bike repair shop")
	if err != nil {
		t.Fatalf("live generator call failed: %v", err)
	}

	preview := html
	const previewLimit = 800
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}

	t.Logf("LLM model %q responded in %s (html length=%d)", model, time.Since(start), len(html))
	t.Logf("HTML preview:\n%s", preview)
}
