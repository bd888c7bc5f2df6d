package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

const (
	maxErrorBodyBytes = 4 << 10
	maxPayloadBytes   = 64 << 20
	deadlineMargin    = 2 * time.Second
)

type Result struct {
	JobID  string
	Images [][]byte
	Seed   int64
	Polls  int
}

// Client talks to a runsync/status style GPU endpoint.
type Client struct {
	cfg        config.InferenceConfig
	http       *http.Client
	normalizer *Normalizer
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	logger     *zap.Logger
}

func NewClient(cfg config.InferenceConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		http:   httpClient,
		sleep:  sleepContext,
		now:    time.Now,
		logger: logger,
	}
	c.normalizer = NewNormalizer(c.fetch, logger)
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.cfg.Configured()
}

type jobInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              *int64  `json:"seed,omitempty"`
	NumImages         int     `json:"num_images,omitempty"`
	LoraName          string  `json:"lora_name,omitempty"`
	LoraURL           string  `json:"lora_url,omitempty"`
	Image             string  `json:"image,omitempty"`
}

type jobResponse struct {
	ID     string          `json:"id"`
	Status enums.JobStatus `json:"status"`
}

func buildInput(p model.GenerationParams) jobInput {
	in := jobInput{
		Prompt:            p.Prompt,
		NegativePrompt:    p.NegativePrompt,
		Width:             p.Width,
		Height:            p.Height,
		NumInferenceSteps: p.Steps,
		GuidanceScale:     p.GuidanceScale,
		LoraName:          p.LoraName,
		LoraURL:           p.LoraURL,
		Image:             p.InitImage,
	}
	if p.Seed >= 0 {
		seed := p.Seed
		in.Seed = &seed
	}
	if p.NumImages > 1 {
		in.NumImages = p.NumImages
	}
	return in
}

// Generate submits the job and, while it is queued or running, polls its
// status every PollInterval. The poll budget is MaxWait clamped to the
// context deadline. The remote job is never cancelled.
func (c *Client) Generate(ctx context.Context, p model.GenerationParams) (Result, error) {
	if !c.Configured() {
		return Result{}, apperr.New(apperr.FailedPrecondition, "Image generation service is not configured")
	}

	body, err := json.Marshal(map[string]any{"input": buildInput(p)})
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "Failed to encode inference request", err)
	}

	raw, job, err := c.do(ctx, http.MethodPost, c.endpointURL("runsync"), body)
	if err != nil {
		return Result{}, err
	}

	maxPolls := c.pollBudget(ctx)
	polls := 0
	for job.Status.Pending() {
		if job.ID == "" {
			return Result{}, apperr.New(apperr.Internal, "Inference job is pending without a job id")
		}
		if polls >= maxPolls {
			c.logger.Warn("inference poll budget exhausted",
				zap.String("job_id", job.ID),
				zap.Int("polls", polls),
			)
			return Result{}, apperr.Newf(apperr.DeadlineExceeded, "Generation timed out after %d status checks", polls)
		}
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return Result{}, apperr.Wrap(apperr.DeadlineExceeded, "Generation timed out while waiting for the provider", err)
		}
		polls++

		raw, job, err = c.do(ctx, http.MethodGet, c.endpointURL("status", job.ID), nil)
		if err != nil {
			return Result{}, err
		}
	}

	if job.Status.Terminal() {
		return Result{}, apperr.New(apperr.Internal, "Generation failed: "+truncate(providerError(raw), 200))
	}

	images, seed, err := c.normalizer.Normalize(ctx, raw, p.NumImages)
	if err != nil {
		return Result{}, err
	}
	if seed == -1 && p.Seed >= 0 {
		seed = p.Seed
	}

	return Result{JobID: job.ID, Images: images, Seed: seed, Polls: polls}, nil
}

func (c *Client) pollBudget(ctx context.Context) int {
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	budget := c.cfg.MaxWait
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := deadline.Sub(c.now()) - deadlineMargin; remaining < budget {
			budget = remaining
		}
	}
	if budget <= 0 {
		return 0
	}
	return int(budget / interval)
}

func (c *Client) endpointURL(parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, url.PathEscape(strings.TrimSpace(c.cfg.EndpointID)))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) ([]byte, jobResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, jobResponse{}, apperr.Wrap(apperr.Internal, "Failed to build inference request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, jobResponse{}, apperr.Wrap(apperr.DeadlineExceeded, "Inference request timed out", err)
		}
		return nil, jobResponse{}, apperr.Wrap(apperr.Internal, "Inference request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Error("inference provider returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return nil, jobResponse{}, apperr.Newf(apperr.Internal, "Inference API error (%d): %s", resp.StatusCode, truncate(strings.TrimSpace(string(snippet)), 200))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, jobResponse{}, apperr.Wrap(apperr.Internal, "Failed to read inference response", err)
	}

	var job jobResponse
	if err := json.Unmarshal(raw, &job); err != nil {
		c.logger.Error("inference response is not json", zap.String("body", truncate(string(raw), maxErrorBodyBytes)))
		return nil, jobResponse{}, apperr.Wrap(apperr.Internal, "Invalid response from inference provider", err)
	}
	return raw, job, nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build image fetch request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	limit := c.cfg.MaxFetchBytes
	if limit <= 0 {
		limit = maxPayloadBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read fetched image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("fetched image exceeds %d bytes", limit)
	}
	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
