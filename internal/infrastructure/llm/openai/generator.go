package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	domainllm "landai/app/internal/domain/llm"
)

// GeneratorOptions configures the chat-completions backed landing page generator.
type GeneratorOptions struct {
	Client       *Client
	Model        string
	Temperature  float64
	SystemPrompt string
}

type generator struct {
	client       *Client
	logger       *logrus.Logger
	model        string
	temperature  float64
	systemPrompt string
}

const (
	defaultGeneratorSystemPrompt = `
	You are an expert web designer who builds landing pages for LandAI.
	Generate a single, self-contained landing page section styled only with Tailwind CSS utility classes.
	Include a hero with a headline and call to action, a short feature list, and a closing call to action.
	Do not include <html>, <head> or <body> tags. Do not include <script> tags or external stylesheets.
	Respond with raw HTML only. Do not wrap the response in markdown code fences.`
	defaultGeneratorTemperature = 0.7

	userPromptPrefix = "Create a professional landing page for: "
)

var _ domainllm.Generator = (*generator)(nil)

// NewGenerator constructs a Generator backed by the chat completions API.
func NewGenerator(opts GeneratorOptions) (domainllm.Generator, error) {
	if opts.Client == nil {
		return nil, eris.New("llm client is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("generator model is required")
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultGeneratorTemperature
	}

	systemPrompt := strings.TrimSpace(opts.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultGeneratorSystemPrompt
	}

	return &generator{
		client:       opts.Client,
		logger:       opts.Client.logger,
		model:        model,
		temperature:  temperature,
		systemPrompt: systemPrompt,
	}, nil
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	trimmedPrompt := strings.TrimSpace(prompt)
	if trimmedPrompt == "" {
		return "", eris.New("prompt is required")
	}

	fields := logrus.Fields{"model": g.model, "prompt_length": len(trimmedPrompt)}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(g.systemPrompt),
			openai.UserMessage(userPromptPrefix + trimmedPrompt),
		},
		Temperature: openai.Float(g.temperature),
	}

	completion, err := g.client.chat.New(ctx, params)
	if err != nil {
		g.logError(fields, err, "requesting chat completion")
		return "", eris.Wrap(err, "requesting chat completion")
	}

	if completion == nil || len(completion.Choices) == 0 {
		err := eris.New("llm completion returned no choices")
		g.logError(fields, err, "processing chat completion")
		return "", err
	}

	choice := completion.Choices[0]
	if reason := strings.TrimSpace(choice.FinishReason); strings.EqualFold(reason, "content_filter") {
		err := eris.New("llm blocked the request via content filter")
		g.logError(fields, err, "generator blocked")
		return "", err
	}

	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		err := eris.Errorf("llm refused to generate content: %s", refusal)
		g.logError(fields, err, "generator refused")
		return "", err
	}

	fragment, err := unwrapDocument(CleanGeneratedHTML(choice.Message.Content))
	if err != nil {
		g.logError(fields, err, "unwrapping llm response")
		return "", err
	}
	if fragment == "" {
		err := eris.New("llm response content is empty")
		g.logError(fields, err, "empty llm response")
		return "", err
	}

	return fragment, nil
}

func (g *generator) logError(fields logrus.Fields, err error, message string) {
	if g.logger == nil || err == nil {
		return
	}

	entry := g.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

// CleanGeneratedHTML removes every markdown code fence delimiter the model may
// wrap around its answer and trims surrounding whitespace.
func CleanGeneratedHTML(content string) string {
	cleaned := strings.ReplaceAll(content, "```html", "")
	cleaned = strings.ReplaceAll(cleaned, "```HTML", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

var documentMarkers = []string{"<!doctype", "<html", "<head", "<body"}

// unwrapDocument returns the body children of a full HTML document. Fragments are
// returned unchanged.
func unwrapDocument(content string) (string, error) {
	lowered := strings.ToLower(content)
	isDocument := false
	for _, marker := range documentMarkers {
		if strings.Contains(lowered, marker) {
			isDocument = true
			break
		}
	}
	if !isDocument {
		return content, nil
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", eris.Wrap(err, "parsing html document")
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return "", nil
	}

	var builder strings.Builder
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&builder, child); err != nil {
			return "", eris.Wrap(err, "rendering document body")
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func findElement(node *html.Node, target atom.Atom) *html.Node {
	if node.Type == html.ElementNode && node.DataAtom == target {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, target); found != nil {
			return found
		}
	}
	return nil
}
