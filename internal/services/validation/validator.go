package validation

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/validate"
)

const (
	defaultDimension = 512
	defaultSteps     = 20
	defaultGuidance  = 7.5
	defaultSeed      = -1
	maxNegativeRunes = 1000
)

var loraNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RawParams mirrors the inbound request. Nil means the caller omitted the
// field and the default applies.
type RawParams struct {
	Prompt         *string  `json:"prompt"`
	NegativePrompt *string  `json:"negative_prompt"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	Steps          *int     `json:"steps"`
	GuidanceScale  *float64 `json:"guidance_scale"`
	Seed           *int64   `json:"seed"`
	NumImages      *int     `json:"num_images"`
	LoraName       *string  `json:"lora_name"`
	LoraURL        *string  `json:"lora_url"`
	Image          *string  `json:"image"`
}

type Validator struct {
	cfg config.GenerationConfig
}

func NewValidator(cfg config.GenerationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate is pure: it never touches storage or the network.
func (v *Validator) Validate(raw RawParams) (model.GenerationParams, error) {
	prompt, err := v.prompt(raw.Prompt)
	if err != nil {
		return model.GenerationParams{}, err
	}

	p := model.GenerationParams{
		Prompt:        prompt,
		Width:         intOr(raw.Width, defaultDimension),
		Height:        intOr(raw.Height, defaultDimension),
		Steps:         intOr(raw.Steps, defaultSteps),
		GuidanceScale: defaultGuidance,
		Seed:          defaultSeed,
		NumImages:     intOr(raw.NumImages, 1),
	}
	if raw.GuidanceScale != nil {
		p.GuidanceScale = *raw.GuidanceScale
	}
	if raw.Seed != nil {
		p.Seed = *raw.Seed
	}

	if !validate.OneOf(p.Width, v.cfg.AllowedDimensions) || !validate.OneOf(p.Height, v.cfg.AllowedDimensions) {
		return model.GenerationParams{}, invalid("Invalid dimensions. Allowed: %s", joinInts(v.cfg.AllowedDimensions))
	}
	if err := v.steps(p.Steps); err != nil {
		return model.GenerationParams{}, err
	}
	if !validate.FloatInRange(p.GuidanceScale, v.cfg.MinGuidance, v.cfg.MaxGuidance) {
		return model.GenerationParams{}, invalid("Guidance scale must be between %g and %g", v.cfg.MinGuidance, v.cfg.MaxGuidance)
	}
	if !validate.IntInRange(p.NumImages, 1, maxInt(v.cfg.MaxImages, 1)) {
		return model.GenerationParams{}, invalid("Number of images must be between 1 and %d", maxInt(v.cfg.MaxImages, 1))
	}
	if p.Seed < -1 {
		return model.GenerationParams{}, invalid("Seed must be -1 (random) or a non-negative integer")
	}

	if raw.NegativePrompt != nil {
		neg := strings.TrimSpace(*raw.NegativePrompt)
		if utf8.RuneCountInString(neg) > maxNegativeRunes {
			return model.GenerationParams{}, invalid("Negative prompt must be at most %d characters", maxNegativeRunes)
		}
		p.NegativePrompt = neg
	}

	if err := v.lora(raw, &p); err != nil {
		return model.GenerationParams{}, err
	}
	if raw.Image != nil && strings.TrimSpace(*raw.Image) != "" {
		img, err := v.initImage(*raw.Image)
		if err != nil {
			return model.GenerationParams{}, err
		}
		p.InitImage = img
	}

	return p, nil
}

func (v *Validator) prompt(raw *string) (string, error) {
	if raw == nil {
		return "", invalid("Prompt is required and must be a string")
	}
	prompt := strings.TrimSpace(*raw)
	n := utf8.RuneCountInString(prompt)
	if n < v.cfg.PromptMinLength || n > v.cfg.PromptMaxLength {
		return "", invalid("Prompt must be between %d and %d characters", v.cfg.PromptMinLength, v.cfg.PromptMaxLength)
	}
	if v.cfg.SpamRepeatThreshold > 0 && validate.LongestRun(prompt) >= v.cfg.SpamRepeatThreshold {
		return "", invalid("Prompt appears to be spam")
	}
	return prompt, nil
}

func (v *Validator) steps(steps int) error {
	if len(v.cfg.AllowedSteps) > 0 {
		if !validate.OneOf(steps, v.cfg.AllowedSteps) {
			return invalid("Invalid steps. Allowed: %s", joinInts(v.cfg.AllowedSteps))
		}
		return nil
	}
	if !validate.IntInRange(steps, v.cfg.MinSteps, v.cfg.MaxSteps) {
		return invalid("Steps must be between %d and %d", v.cfg.MinSteps, v.cfg.MaxSteps)
	}
	return nil
}

func (v *Validator) lora(raw RawParams, p *model.GenerationParams) error {
	if raw.LoraName != nil && strings.TrimSpace(*raw.LoraName) != "" {
		name := strings.TrimSpace(*raw.LoraName)
		if !loraNamePattern.MatchString(name) {
			return invalid("Invalid LoRA name")
		}
		p.LoraName = name
	}
	if raw.LoraURL != nil && strings.TrimSpace(*raw.LoraURL) != "" {
		if p.LoraName == "" {
			return invalid("lora_url requires lora_name")
		}
		if !validate.HTTPURL(*raw.LoraURL) {
			return invalid("lora_url must be an http(s) URL")
		}
		p.LoraURL = strings.TrimSpace(*raw.LoraURL)
	}
	return nil
}

// initImage accepts raw base64 or a data URI and returns the bare base64.
func (v *Validator) initImage(raw string) (string, error) {
	data := strings.TrimSpace(raw)
	if strings.HasPrefix(data, "data:") {
		idx := strings.Index(data, ",")
		if idx < 0 {
			return "", invalid("Invalid image data URI")
		}
		data = data[idx+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", invalid("Image must be valid base64")
	}
	if v.cfg.MaxInitImageBytes > 0 && len(decoded) > v.cfg.MaxInitImageBytes {
		return "", invalid("Image exceeds %d bytes", v.cfg.MaxInitImageBytes)
	}
	return data, nil
}

// BlockedKeyword returns the first entry of blocklist found in the
// lowercased prompt.
func BlockedKeyword(prompt string, blocklist []string) (string, bool) {
	lower := strings.ToLower(prompt)
	for _, kw := range blocklist {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func invalid(format string, args ...any) error {
	return apperr.Newf(apperr.InvalidArgument, format, args...)
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}
