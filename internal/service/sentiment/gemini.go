package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/service/cache"
	"Aktiemotor/internal/service/metrics"
	pkgcache "Aktiemotor/pkg/cache"
	"Aktiemotor/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

const (
	kindSentiment   = "sentiment"
	kindDescription = "description"
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	CacheTTL   time.Duration
	RetryDelay time.Duration
}

// Gemini classifies headlines through Gemini's OpenAI-compatible endpoint.
type Gemini struct {
	client  *openai.Client
	cfg     Config
	cache   cache.BytesCache
	metrics *metrics.LLMMetrics
	log     *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewGemini(cfg Config, c cache.BytesCache, m *metrics.LLMMetrics, l *logger.Logger) *Gemini {
	if l == nil {
		l = logger.Nop()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Gemini{
		client:  openai.NewClientWithConfig(oc),
		cfg:     cfg,
		cache:   c,
		metrics: m,
		log:     l.With("sentiment"),
		sleep:   sleepCtx,
	}
}

func sentimentPrompt(ticker, headline string) string {
	return fmt.Sprintf(`Analysera sentimentet i följande nyhetsrubrik om aktien %s.
Rubrik: "%s"

Svara ENDAST med JSON på formen:
{"sentiment": "POSITIVE" | "NEGATIVE" | "NEUTRAL", "score": tal mellan -1 och 1, "reason": "kort motivering"}`, ticker, headline)
}

// Analyze classifies headline. Every failure yields a neutral result.
func (g *Gemini) Analyze(ctx context.Context, ticker, headline string) *models.SentimentResult {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		return models.NeutralSentiment("no headline")
	}
	key := pkgcache.Key("sentiment", pkgcache.HashKey(headline))
	if res, ok := cache.GetJSON[models.SentimentResult](ctx, g.cache, key); ok {
		g.metrics.CacheHit(kindSentiment)
		return &res
	}

	text, err := g.complete(ctx, kindSentiment, sentimentPrompt(ticker, headline), 0.1)
	if err != nil {
		g.log.Warn("sentiment call failed", logger.String("ticker", ticker), logger.Error(err))
		return models.NeutralSentiment("sentiment unavailable")
	}
	res, err := parseResult(text)
	if err != nil {
		g.log.Warn("unparseable sentiment answer", logger.String("ticker", ticker), logger.Error(err))
		return models.NeutralSentiment("sentiment unparseable")
	}
	_ = cache.SetJSON(ctx, g.cache, key, res, g.cfg.CacheTTL)
	return res
}

func parseResult(text string) (*models.SentimentResult, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return nil, errors.New("no json object in answer")
	}
	var res models.SentimentResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, err
	}
	res.Sentiment = models.SentimentLabel(strings.ToUpper(strings.TrimSpace(string(res.Sentiment))))
	switch res.Sentiment {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
	default:
		return nil, fmt.Errorf("unknown sentiment %q", res.Sentiment)
	}
	if res.Score > 1 {
		res.Score = 1
	} else if res.Score < -1 {
		res.Score = -1
	}
	return &res, nil
}

// Describe writes a short Swedish explanation of rec. Without an answer it
// falls back to the first three reasons.
func (g *Gemini) Describe(ctx context.Context, rec *models.Recommendation) string {
	prompt := fmt.Sprintf(`Skriv en förklaring på 2-3 meningar på svenska till en privat investerare om varför
systemet föreslår %s för %s till kursen %.2f. Signalstyrka: %d/100. Skäl: %s.`,
		rec.Side, rec.Ticker, rec.Price, rec.Confidence, strings.Join(rec.Reasons, "; "))
	text, err := g.complete(ctx, kindDescription, prompt, 0.3)
	if err != nil || strings.TrimSpace(text) == "" {
		return FallbackDescription(rec)
	}
	return strings.TrimSpace(text)
}

// FallbackDescription joins the first three reasons.
func FallbackDescription(rec *models.Recommendation) string {
	reasons := rec.Reasons
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return strings.Join(reasons, ", ")
}

// complete runs one chat completion, retrying once after a 429.
func (g *Gemini) complete(ctx context.Context, kind, prompt string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err == nil {
			g.metrics.Call(kind, "ok")
			g.metrics.Latency(kind, time.Since(start))
			g.metrics.Tokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			if len(resp.Choices) == 0 {
				return "", errors.New("empty completion")
			}
			return resp.Choices[0].Message.Content, nil
		}
		if rateLimited(err) {
			g.metrics.Call(kind, "rate_limited")
			if attempt == 0 {
				if serr := g.sleep(ctx, g.cfg.RetryDelay); serr != nil {
					return "", serr
				}
				continue
			}
		} else {
			g.metrics.Call(kind, "failed")
		}
		return "", err
	}
}

func rateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Static is the analyzer used when no API key is configured: every headline
// is neutral and descriptions come from the reasons.
type Static struct{}

func (Static) Analyze(context.Context, string, string) *models.SentimentResult {
	return models.NeutralSentiment("sentiment disabled")
}

func (Static) Describe(_ context.Context, rec *models.Recommendation) string {
	return FallbackDescription(rec)
}
