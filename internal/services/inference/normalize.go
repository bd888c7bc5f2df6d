package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

const maxConcurrentFetches = 4

type payload struct {
	Status    string          `json:"status"`
	Output    any             `json:"output"`
	OutputURL string          `json:"output_url"`
	Error     json.RawMessage `json:"error"`
}

// matcher recognises one known response shape and returns its raw image
// entries. Each entry is base64, a data: URI or an http(s) URL.
type matcher struct {
	name  string
	match func(p payload) ([]string, bool)
}

// matchers run in order; the first that matches wins.
var matchers = []matcher{
	{name: "output.images", match: objectArrayField("images")},
	{name: "output.image_url", match: objectStringField("image_url")},
	{name: "output.image_base64", match: objectStringField("image_base64")},
	{name: "output.image", match: objectStringField("image")},
	{name: "output string", match: bareString},
	{name: "output array", match: bareArray},
	{name: "output_url", match: topLevelOutputURL},
}

type fetchFunc func(ctx context.Context, url string) ([]byte, error)

type Normalizer struct {
	fetch  fetchFunc
	logger *zap.Logger
}

func NewNormalizer(fetch fetchFunc, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{fetch: fetch, logger: logger}
}

// Normalize decodes the provider payload into image bytes and the reported
// seed (-1 when absent). All entries are returned only when numImages > 1.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte, numImages int) ([][]byte, int64, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, -1, apperr.Wrap(apperr.Internal, "Invalid response from inference provider", err)
	}

	if p.Output == nil && strings.EqualFold(p.Status, "COMPLETED") && p.OutputURL == "" {
		n.logger.Error("inference completed without output", zap.String("payload", truncate(string(raw), maxErrorBodyBytes)))
		return nil, -1, apperr.New(apperr.Internal, "Generation completed without output (output may be too large)")
	}

	for _, m := range matchers {
		entries, ok := m.match(p)
		if !ok {
			continue
		}
		if numImages <= 1 && len(entries) > 1 {
			entries = entries[:1]
		}
		images, err := n.resolve(ctx, entries)
		if err != nil {
			n.logger.Error("inference response entry unusable",
				zap.String("matcher", m.name),
				zap.Error(err),
			)
			return nil, -1, apperr.Wrap(apperr.Internal, "Failed to decode generated image", err)
		}
		return images, seedOf(p.Output), nil
	}

	if msg := providerError(raw); msg != "" {
		n.logger.Error("inference provider reported an error", zap.String("payload", truncate(string(raw), maxErrorBodyBytes)))
		return nil, -1, apperr.New(apperr.Internal, "Generation failed: "+truncate(msg, 200))
	}

	n.logger.Error("unrecognized inference response", zap.String("payload", truncate(string(raw), maxErrorBodyBytes)))
	return nil, -1, apperr.New(apperr.Internal, "Unrecognized response format from inference provider")
}

func (n *Normalizer) resolve(ctx context.Context, entries []string) ([][]byte, error) {
	out := make([][]byte, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, entry := range entries {
		i, entry := i, strings.TrimSpace(entry)
		g.Go(func() error {
			if !isHTTPURL(entry) {
				data, err := decodeBase64(stripDataURI(entry))
				if err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
				out[i] = data
				return nil
			}
			if n.fetch == nil {
				return fmt.Errorf("entry %d is a url but fetching is disabled", i)
			}
			data, err := n.fetch(gctx, entry)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			out[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func objectStringField(field string) func(payload) ([]string, bool) {
	return func(p payload) ([]string, bool) {
		obj, ok := p.Output.(map[string]any)
		if !ok {
			return nil, false
		}
		s, ok := obj[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return []string{s}, true
	}
}

func objectArrayField(field string) func(payload) ([]string, bool) {
	return func(p payload) ([]string, bool) {
		obj, ok := p.Output.(map[string]any)
		if !ok {
			return nil, false
		}
		return stringEntries(obj[field])
	}
}

func bareString(p payload) ([]string, bool) {
	s, ok := p.Output.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, false
	}
	return []string{s}, true
}

func bareArray(p payload) ([]string, bool) {
	return stringEntries(p.Output)
}

func topLevelOutputURL(p payload) ([]string, bool) {
	if strings.TrimSpace(p.OutputURL) == "" {
		return nil, false
	}
	return []string{p.OutputURL}, true
}

// stringEntries accepts a non-empty array of non-empty strings only.
func stringEntries(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func seedOf(output any) int64 {
	obj, ok := output.(map[string]any)
	if !ok {
		return -1
	}
	if f, ok := obj["seed"].(float64); ok {
		return int64(f)
	}
	return -1
}

// providerError extracts error text from the top-level error field or from
// an output object that reports status "error".
func providerError(raw []byte) string {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	if msg := rawMessageText(p.Error); msg != "" {
		return msg
	}
	obj, ok := p.Output.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := obj["error"].(string); ok && s != "" {
		return s
	}
	if status, _ := obj["status"].(string); strings.EqualFold(status, "error") {
		if s, ok := obj["message"].(string); ok && s != "" {
			return s
		}
		return "provider reported an error"
	}
	return ""
}

func rawMessageText(m json.RawMessage) string {
	if len(m) == 0 || string(m) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return string(m)
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty image entry")
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}
