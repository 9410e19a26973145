// Package ollama answers free-form banking questions with a local model
// served by Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/ledgerbot/internal/assistant"
	"github.com/iho/ledgerbot/internal/usecase"
)

const (
	DefaultHost            = "http://localhost:11434"
	DefaultModel           = "qwen2.5-3b-instruct-q4_k_m:latest"
	DefaultDialTimeout     = 10 * time.Second
	DefaultResponseTimeout = 180 * time.Second

	chatPath = "/api/chat"
)

const systemPrompt = `You are BankingAssistant, an AI banking customer support agent.
Your job is to assist customers with balance inquiries, transactions, IBAN help,
banking concepts, fraud prevention, and general questions.

STRICT BEHAVIOR:
- Stay in banking context. If the user asks something unrelated, politely say you can only help with banking topics.
- Never output code blocks or programming examples.
- Keep replies short: max 2-3 sentences unless the user explicitly asks for step-by-step instructions.
- If the user message is only a greeting, reply with a short greeting and ask what banking help they need.

Rules:
1. Never guess balances or personal data.
2. Never ask for PIN, CVV, or password.
3. If the user asks for a transfer, explain the steps but do not perform it.
4. Detect the user's language (Turkish or English) and reply in that language.
5. Keep responses short, polite, and professional.
6. If the user says "sadece Türkçe konuş", use only Turkish.
7. If the user says "sadece İngilizce konuş", use only English.`

var (
	// ErrUnavailable is returned while the circuit breaker rejects calls.
	ErrUnavailable = errors.New("ollama: assistant temporarily unavailable")
	// ErrEmptyReply is returned when the model answers with no content.
	ErrEmptyReply = errors.New("ollama: empty reply")
)

// Observer receives the outcome and latency of every model call.
type Observer interface {
	ObserveAssistantCall(outcome string, duration time.Duration)
}

// BreakerConfig tunes the circuit breaker guarding the model.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Config holds client configuration.
type Config struct {
	Host            string
	Model           string
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
	CacheTTL        time.Duration
	Breaker         BreakerConfig
}

// Client implements usecase.Assistant.
type Client struct {
	httpClient *http.Client
	host       string
	model      string
	breaker    *gobreaker.CircuitBreaker
	cache      usecase.Cache
	cacheTTL   time.Duration
	observer   Observer
	logger     zerolog.Logger
}

// New creates a Client. cache and observer may be nil.
func New(cfg Config, cache usecase.Cache, observer Observer, logger zerolog.Logger) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}

	logger = logger.With().Str("component", "ollama").Logger()

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: cfg.DialTimeout}).DialContext,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
		MaxIdleConnsPerHost:   4,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		host:       strings.TrimRight(cfg.Host, "/"),
		model:      cfg.Model,
		breaker:    newBreaker(cfg.Breaker, logger),
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		observer:   observer,
		logger:     logger,
	}
}

func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// Ask sends message to the model and returns its raw answer.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	stepByStep := assistant.WantsStepByStep(message)
	key := cacheKey(message, stepByStep)

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key); err == nil {
			c.observe("cache_hit", 0)
			return string(cached), nil
		} else if !errors.Is(err, usecase.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("assistant cache read failed")
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.chat(ctx, message, stepByStep)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.observe("rejected", time.Since(start))
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.observe("error", time.Since(start))
		return "", err
	}
	c.observe("success", time.Since(start))

	answer := result.(string)
	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, []byte(answer), c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("assistant cache write failed")
		}
	}

	return answer, nil
}

// State reports the circuit breaker state, for readiness checks.
func (c *Client) State() string {
	return c.breaker.State().String()
}

func (c *Client) chat(ctx context.Context, message string, stepByStep bool) (string, error) {
	body, err := json.Marshal(newChatRequest(c.model, message, stepByStep))
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	content := strings.TrimSpace(out.Message.Content)
	if content == "" {
		return "", ErrEmptyReply
	}

	return content, nil
}

func (c *Client) observe(outcome string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAssistantCall(outcome, d)
	}
}

func cacheKey(message string, stepByStep bool) string {
	sum := sha256.Sum256([]byte(assistant.Normalize(message)))
	mode := "short"
	if stepByStep {
		mode = "steps"
	}
	return "ollama:" + mode + ":" + hex.EncodeToString(sum[:])
}
