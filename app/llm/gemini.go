package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	availableKey         = "available"
	availableTTL         = 10 * time.Minute
	unavailableTTL       = time.Minute
	labelTTL             = time.Hour
	cacheCleanup         = 10 * time.Minute
	defaultRatePerMinute = 60

	promptTemplate = `Categorize this LinkedIn post in exactly 1-3 words. ` +
		`Respond only with JSON of the form {"category_label": "<label>"} ` +
		`with no markdown or formatting in the label. Post: %q`
)

// models is the part of the genai client used here.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

type categoryResponse struct {
	CategoryLabel string `json:"category_label"`
}

// Gemini labels posts with a Gemini model. Requests are paced by a rate
// limiter; availability and labels are cached.
type Gemini struct {
	models  models
	model   string
	limiter *rate.Limiter
	cache   *cache.Cache
	timeout time.Duration
}

type GeminiConfig struct {
	APIKey        string
	Model         string
	RatePerMinute int
	Timeout       time.Duration
	UserAgent     string
}

func NewGemini(ctx context.Context, config GeminiConfig) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.UserAgent != "" {
		clientConfig.HTTPOptions.Headers = http.Header{"User-Agent": []string{config.UserAgent}}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGemini(client.Models, config), nil
}

func newGemini(m models, config GeminiConfig) *Gemini {
	perMinute := config.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}

	return &Gemini{
		models:  m,
		model:   config.Model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		cache:   cache.New(labelTTL, cacheCleanup),
		timeout: config.Timeout,
	}
}

func (g *Gemini) Available(ctx context.Context) bool {
	if v, ok := g.cache.Get(availableKey); ok {
		return v.(bool)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err := g.models.Get(ctx, g.model, nil)
	available := err == nil
	if available {
		g.cache.Set(availableKey, true, availableTTL)
	} else {
		slog.Warn("Gemini model unavailable", "model", g.model, "error", err)
		g.cache.Set(availableKey, false, unavailableTTL)
	}

	return available
}

func (g *Gemini) Categorize(ctx context.Context, text string) (string, error) {
	text = Truncate(strings.TrimSpace(text))
	if text == "" {
		return FallbackLabel, nil
	}

	key := "label:" + strconv.FormatUint(xxhash.Sum64String(text), 16)
	if v, ok := g.cache.Get(key); ok {
		return v.(string), nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model,
		genai.Text(fmt.Sprintf(promptTemplate, text)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini request failed: %w", err)
	}

	label, err := parseLabel(resp.Text())
	if err != nil {
		return "", err
	}

	g.cache.Set(key, label, cache.DefaultExpiration)
	return label, nil
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func parseLabel(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var resp categoryResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return "", fmt.Errorf("malformed category response: %w", err)
	}
	return SanitizeLabel(resp.CategoryLabel), nil
}
