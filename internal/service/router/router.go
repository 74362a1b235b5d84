// Package router classifies a user message and dispatches it to exactly one
// adapter, shaping the adapter output into chat content.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"meligy/internal/models"
	"meligy/internal/service/image"
	"meligy/internal/service/search"
	"meligy/internal/service/table"
)

// Apology is the only text users see when dispatch fails unexpectedly.
const Apology = "I apologize, but I encountered an error while processing your request. Please try again."

// SearchResultLimit is the maxResults passed to the search adapter; at most
// three results are shown.
const (
	SearchResultLimit = 5
	shownResults      = 3
)

// Intent is the classified purpose of a message.
type Intent int

const (
	IntentIdentity Intent = iota
	IntentSearch
	IntentTable
	IntentImage
	IntentChat
)

// Priority is the fixed classification order. The first match wins.
var Priority = []Intent{IntentIdentity, IntentSearch, IntentTable, IntentImage, IntentChat}

func (i Intent) String() string {
	switch i {
	case IntentIdentity:
		return "identity"
	case IntentSearch:
		return "search"
	case IntentTable:
		return "table"
	case IntentImage:
		return "image"
	case IntentChat:
		return "chat"
	}
	return fmt.Sprintf("intent(%d)", int(i))
}

var predicates = map[Intent]func(string) bool{
	IntentIdentity: IsIdentityQuestion,
	IntentSearch:   search.ShouldSearch,
	IntentTable:    table.ShouldGenerate,
	IntentImage:    image.ShouldGenerate,
	IntentChat:     func(string) bool { return true },
}

// Classify returns the first intent in Priority whose predicate matches.
func Classify(input string) Intent {
	for _, intent := range Priority {
		if predicates[intent](input) {
			return intent
		}
	}
	return IntentChat
}

// Responder is the conversational adapter.
type Responder interface {
	Respond(ctx context.Context, input string, history []*models.ChatMessage) string
}

type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) models.SearchResponse
}

type TableGenerator interface {
	Generate(req models.TableRequest) models.TableResponse
}

type ImageGenerator interface {
	GenerateFor(ctx context.Context, req image.Request) models.ImageResult
}

// errFallThrough hands the message to the plain chat reply.
var errFallThrough = errors.New("fall through to chat")

// Router holds one adapter per intent.
type Router struct {
	chat   Responder
	search Searcher
	tables TableGenerator
	images ImageGenerator
	logger *zap.Logger
}

func New(chat Responder, searcher Searcher, tables TableGenerator, images ImageGenerator, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{chat: chat, search: searcher, tables: tables, images: images, logger: logger}
}

// Route never fails: unexpected errors and panics become the apology text.
func (r *Router) Route(ctx context.Context, input string, history []*models.ChatMessage) (out models.Content) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("route panicked", zap.Any("panic", rec))
			out = apology()
		}
	}()

	intent := Classify(input)
	r.logger.Debug("routing message", zap.Stringer("intent", intent))

	content, err := r.dispatch(ctx, intent, input, history)
	if errors.Is(err, errFallThrough) {
		content, err = r.respondChat(ctx, input, history)
	}
	if err != nil {
		r.logger.Error("route failed", zap.Stringer("intent", intent), zap.Error(err))
		return apology()
	}
	return content
}

func apology() models.Content {
	return models.Content{Content: Apology, Type: models.TypeText}
}

func (r *Router) dispatch(ctx context.Context, intent Intent, input string, history []*models.ChatMessage) (models.Content, error) {
	switch intent {
	case IntentIdentity:
		return models.Content{Content: IdentityResponse(input), Type: models.TypeText}, nil
	case IntentSearch:
		return r.respondSearch(ctx, input, history)
	case IntentTable:
		return r.respondTable(input)
	case IntentImage:
		return r.respondImage(ctx, input)
	}
	return r.respondChat(ctx, input, history)
}

func (r *Router) respondChat(ctx context.Context, input string, history []*models.ChatMessage) (models.Content, error) {
	if r.chat == nil {
		return models.Content{}, errors.New("no conversational adapter")
	}
	return models.Content{Content: r.chat.Respond(ctx, input, history), Type: models.TypeText}, nil
}

func (r *Router) respondSearch(ctx context.Context, input string, history []*models.ChatMessage) (models.Content, error) {
	if r.search == nil || r.chat == nil {
		return models.Content{}, errors.New("search adapter not configured")
	}
	query := search.ExtractQuery(input)
	resp := r.search.Search(ctx, query, SearchResultLimit)
	if !resp.Success || len(resp.Results) == 0 {
		prompt := fmt.Sprintf("I couldn't find current search results for \"%s\". What specific information are you looking for?", query)
		return models.Content{Content: r.chat.Respond(ctx, prompt, history), Type: models.TypeText}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found about \"%s\":\n\n", query)
	b.WriteString(FormatResults(resp.Results))
	b.WriteString(r.chat.Respond(ctx, fmt.Sprintf(
		"Based on this search about \"%s\", give me a helpful summary and let me know if you need more specific information.", query), history))
	return models.Content{Content: b.String(), Type: models.TypeText}, nil
}

// FormatResults renders the top three results as numbered markdown blocks.
func FormatResults(results []models.SearchResult) string {
	var b strings.Builder
	for i, res := range results {
		if i == shownResults {
			break
		}
		fmt.Fprintf(&b, "**%d. %s**\n%s\n*Source: %s* - [Read more](%s)\n\n", i+1, res.Title, res.Snippet, res.Source, res.URL)
	}
	return b.String()
}

func (r *Router) respondTable(input string) (models.Content, error) {
	if r.tables == nil {
		return models.Content{}, errors.New("table adapter not configured")
	}
	resp := r.tables.Generate(table.ParseRequest(input))
	if !resp.Success {
		return models.Content{}, fmt.Errorf("generate table: %s", resp.Error)
	}
	return models.Content{Content: resp.Explanation, Type: models.TypeTable, TableHTML: resp.TableHTML}, nil
}

// respondImage never surfaces an image error; any failure falls through.
func (r *Router) respondImage(ctx context.Context, input string) (models.Content, error) {
	if r.images == nil {
		return models.Content{}, errFallThrough
	}
	req := image.ExtractPrompt(input)
	res := r.images.GenerateFor(ctx, req)
	if !res.Success || res.ImageURL == "" {
		r.logger.Info("image generation failed, replying in chat", zap.String("error", res.Error))
		return models.Content{}, errFallThrough
	}
	return models.Content{Content: ImageCaption(req.Prompt, res.CorrectedPrompt), Type: models.TypeImage, MediaURL: res.ImageURL}, nil
}

// ImageCaption prefers the corrected prompt when the optimizer changed it.
func ImageCaption(prompt, corrected string) string {
	if corrected != "" {
		return fmt.Sprintf("🎨 **Generated image based on:** \"%s\"\n\n*Powered by Google AI Studio for high-quality visual content*", corrected)
	}
	return fmt.Sprintf("🎨 **Generated image for:** \"%s\"\n\n*Powered by Google AI Studio for professional visual content*", prompt)
}
