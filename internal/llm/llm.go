// Package llm handles LLM provider communication, prompt construction,
// response validation, and the single repair attempt for clause analysis.
//
// Every user prompt is anonymized before it leaves the process, and text the
// model returns is restored with the same mapping.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/contractpilot/internal/anonymize"
	"github.com/dshills/contractpilot/internal/profile"
	"github.com/dshills/contractpilot/internal/schema"
)

// ErrInvalidModelOutput is returned in strict mode when both the initial and
// repair responses fail validation.
var ErrInvalidModelOutput = errors.New("llm: invalid model output after repair attempt")

// Request is one completion call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a JSON-only response where it supports it.
	JSON bool
}

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderConfig selects and configures a backend. An empty APIKey falls back
// to the provider's environment variable.
type ProviderConfig struct {
	Name    string
	Model   string
	BaseURL string
	APIKey  string
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(cfg ProviderConfig) (Provider, error) = defaultNewProvider

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderUpstage   = "upstage"
	ProviderLocal     = "local"
)

// defaultModels is used when no model is configured.
var defaultModels = map[string]string{
	ProviderAnthropic: "claude-sonnet-4-6",
	ProviderOpenAI:    "gpt-4o",
	ProviderGoogle:    "gemini-2.0-flash",
	ProviderUpstage:   "solar-pro",
	ProviderLocal:     "llama3.1",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

// Sampling temperatures.
const (
	AnalysisTemperature    = 0.3
	AlternativeTemperature = 0.5
)

// Options configures a Client.
type Options struct {
	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	MaxTokens       int
	Anonymize       bool
	PreserveAmounts bool
	// StrictOutput returns ErrInvalidModelOutput instead of the fallback
	// analysis when the model never produces valid JSON.
	StrictOutput bool
	Profile      profile.Profile
	Debug        bool
}

// Info describes the configured backend for status endpoints.
type Info struct {
	Provider             string `json:"provider"`
	Model                string `json:"model"`
	AnonymizationEnabled bool   `json:"anonymization_enabled"`
	PreserveAmounts      bool   `json:"preserve_amounts"`
	Profile              string `json:"profile"`
}

// Client runs clause analysis against one provider. It is safe for
// concurrent use as long as the provider is.
type Client struct {
	provider Provider
	engine   *anonymize.Engine
	opts     Options
	logger   *slog.Logger
}

// ClauseRequest is the input to AnalyzeClause.
type ClauseRequest struct {
	Text         string
	ContractType string
	// Cases, when non-empty, switches to the precedent-aware prompt.
	Cases []schema.SimilarCase
}

// New creates a Client. engine may be nil when opts.Anonymize is false.
func New(opts Options, engine *anonymize.Engine, logger *slog.Logger) (*Client, error) {
	if opts.Provider == "" {
		opts.Provider = ProviderAnthropic
	}
	opts.Provider = strings.ToLower(opts.Provider)
	if opts.Model == "" {
		opts.Model = DefaultModel(opts.Provider)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.Anonymize && engine == nil {
		engine = anonymize.Default
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	provider, err := NewProvider(ProviderConfig{
		Name:    opts.Provider,
		Model:   opts.Model,
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create provider: %w", err)
	}
	return &Client{provider: provider, engine: engine, opts: opts, logger: logger}, nil
}

// Info reports the configured backend.
func (c *Client) Info() Info {
	return Info{
		Provider:             c.opts.Provider,
		Model:                c.opts.Model,
		AnonymizationEnabled: c.opts.Anonymize,
		PreserveAmounts:      c.opts.PreserveAmounts,
		Profile:              c.opts.Profile.Name,
	}
}

// complete anonymizes the user prompt, calls the provider and returns the raw
// response together with the mapping needed to restore it.
func (c *Client) complete(ctx context.Context, req Request) (string, *anonymize.Mapping, error) {
	mapping := anonymize.NewMapping()
	if c.opts.Anonymize {
		res := c.engine.Anonymize(req.User, c.opts.PreserveAmounts)
		req.User = res.Text
		mapping = res.Mapping
		if n := res.Stats.Total(); n > 0 {
			c.logger.Debug("anonymized prompt", "masked_items", n)
		}
	}
	if c.opts.Debug {
		// Prompts are logged after anonymization.
		c.logger.Debug("llm request", "system", req.System, "user", req.User)
	}
	raw, err := c.provider.Complete(ctx, req)
	if err != nil {
		return "", nil, err
	}
	return raw, mapping, nil
}

func (c *Client) restore(s string, m *anonymize.Mapping) string {
	if c.engine == nil || m.Len() == 0 {
		return s
	}
	return c.engine.Restore(s, m)
}

// AnalyzeClause asks the model for a risk assessment of one clause, validates
// the response, and performs one repair attempt if validation fails. If the
// repair also fails the fallback analysis is returned (or
// ErrInvalidModelOutput in strict mode). Provider errors are returned as is.
func (c *Client) AnalyzeClause(ctx context.Context, cr ClauseRequest) (schema.ClauseAnalysis, error) {
	sysPrompt := buildAnalysisSystemPrompt(c.opts.Profile, len(cr.Cases) > 0)
	userPrompt := buildAnalysisUserPrompt(cr)
	req := Request{
		System:      sysPrompt,
		User:        userPrompt,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: AnalysisTemperature,
		JSON:        true,
	}

	raw, mapping, err := c.complete(ctx, req)
	if err != nil {
		return schema.ClauseAnalysis{}, fmt.Errorf("llm: complete: %w", err)
	}

	analysis, validationErrs := ValidateAnalysis(raw)
	if analysis != nil && !needsRepair(validationErrs) {
		return c.restoreAnalysis(*analysis, mapping), nil
	}
	c.logger.Warn("invalid analysis response; attempting repair", "errors", len(validationErrs))

	// One repair attempt: include the original prompt and the invalid response
	// so the LLM has full context.
	req.User = buildRepairPrompt(userPrompt, raw, validationErrs)
	raw2, mapping2, err := c.complete(ctx, req)
	if err != nil {
		return schema.ClauseAnalysis{}, fmt.Errorf("llm: repair complete: %w", err)
	}

	analysis2, validationErrs2 := ValidateAnalysis(raw2)
	if analysis2 != nil && !needsRepair(validationErrs2) {
		return c.restoreAnalysis(*analysis2, mapping2), nil
	}

	if c.opts.StrictOutput {
		return schema.ClauseAnalysis{}, ErrInvalidModelOutput
	}
	c.logger.Warn("repair failed; using fallback analysis")
	return FallbackAnalysis(), nil
}

// GenerateAlternative asks the model for a fairer rewrite of a clause.
func (c *Client) GenerateAlternative(ctx context.Context, original string, issues []string) (string, error) {
	raw, mapping, err := c.complete(ctx, Request{
		System:      buildAlternativeSystemPrompt(c.opts.Profile),
		User:        buildAlternativeUserPrompt(original, issues),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: AlternativeTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: alternative: %w", err)
	}
	return c.restore(stripMarkdownFences(raw), mapping), nil
}

func (c *Client) restoreAnalysis(a schema.ClauseAnalysis, m *anonymize.Mapping) schema.ClauseAnalysis {
	a.Summary = c.restore(a.Summary, m)
	a.LegalBasis = c.restore(a.LegalBasis, m)
	a.Suggestion = c.restore(a.Suggestion, m)
	for i := range a.Issues {
		a.Issues[i] = c.restore(a.Issues[i], m)
	}
	for i := range a.RelatedCases {
		a.RelatedCases[i] = c.restore(a.RelatedCases[i], m)
	}
	return a
}

// FallbackAnalysis is returned when the model's output cannot be parsed.
func FallbackAnalysis() schema.ClauseAnalysis {
	return schema.ClauseAnalysis{
		RiskScore:  5,
		RiskLevel:  schema.RiskMedium,
		Summary:    "분석 결과를 파싱할 수 없습니다.",
		Issues:     []string{"분석 재시도가 필요합니다."},
		LegalBasis: "",
		Suggestion: "",
	}
}

// ValidationError records a single validation failure on an LLM response.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// needsRepair returns true when validation errors include a parse or
// required-field failure that requires a retry.
func needsRepair(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Field == "json_parse" || e.Field == "required_field" {
			return true
		}
	}
	return false
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line (no closing fence required).
// Used to strip orphaned opening fences from truncated responses.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that LLMs
// sometimes wrap around their output (e.g., "```json\n...\n```").
// If only an opening fence is present the opening line is stripped.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by any character that is not
// a valid JSON string escape character ("\/bfnrtu).
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// fixInvalidJSONEscapes replaces invalid JSON escape sequences in s with their
// correctly double-escaped equivalents.
func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

// ValidateAnalysis parses and validates a raw analysis response.
// Leading/trailing markdown fences are stripped before parsing.
// Non-fatal issues (bad risk_level, out-of-range confidence) are fixed in
// place and recorded. Returns nil only on parse failure or a missing
// risk_score.
func ValidateAnalysis(raw string) (*schema.ClauseAnalysis, []ValidationError) {
	var errs []ValidationError

	raw = stripMarkdownFences(raw)

	var a schema.ClauseAnalysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		fixed := fixInvalidJSONEscapes(raw)
		a = schema.ClauseAnalysis{}
		if err2 := json.Unmarshal([]byte(fixed), &a); err2 != nil {
			errs = append(errs, ValidationError{
				Field:   "json_parse",
				Message: err.Error(),
			})
			return nil, errs
		}
	}

	if a.RiskScore == 0 {
		errs = append(errs, ValidationError{
			Field:   "required_field",
			Message: "risk_score is missing",
		})
		return nil, errs
	}

	level, err := schema.ParseRiskLevel(string(a.RiskLevel))
	if err != nil {
		level = schema.LevelForScore(a.RiskScore)
		errs = append(errs, ValidationError{
			Field:   "risk_level",
			Message: fmt.Sprintf("invalid risk_level %q; derived %q from risk_score", a.RiskLevel, level),
		})
	}
	a.RiskLevel = level

	if a.Issues == nil {
		a.Issues = []string{}
	}

	if a.Confidence != nil && (*a.Confidence < 0 || *a.Confidence > 1) {
		c := min(max(*a.Confidence, 0), 1)
		errs = append(errs, ValidationError{
			Field:   "confidence",
			Message: fmt.Sprintf("confidence %v out of range; clamped to %v", *a.Confidence, c),
		})
		a.Confidence = &c
	}

	return &a, errs
}

// jsonInstruction is appended for providers that have no JSON response mode.
const jsonInstruction = "\n\n응답은 반드시 유효한 JSON 형식으로 해주세요."

const analysisSchema = `응답 형식 (JSON):
{
    "risk_score": 1-10 (10이 가장 위험),
    "risk_level": "low" | "medium" | "high" | "critical",
    "summary": "위험 요약 (1문장)",
    "issues": ["문제점1", "문제점2"],
    "legal_basis": "관련 법조항 또는 판례",
    "suggestion": "수정 제안"
}`

const contextualAnalysisSchema = `응답 형식 (JSON):
{
    "risk_score": 1-10,
    "risk_level": "low" | "medium" | "high" | "critical",
    "summary": "위험 요약",
    "issues": ["문제점 목록"],
    "legal_basis": "관련 법조항",
    "related_cases": ["관련 판례 분석"],
    "suggestion": "수정 제안",
    "confidence": 0.0-1.0
}`

// buildAnalysisSystemPrompt assembles the clause-analysis system prompt.
func buildAnalysisSystemPrompt(prof profile.Profile, withCases bool) string {
	var sb strings.Builder
	sb.WriteString("당신은 한국 계약법 전문가입니다.\n")
	if withCases {
		sb.WriteString("계약서 조항을 분석하고 관련 판례를 참고하여 위험도를 평가합니다.\n\n")
	} else {
		sb.WriteString("계약서 조항을 분석하여 위험도를 평가합니다.\n\n")
	}
	sb.WriteString("주의사항:\n")
	sb.WriteString("- 개인정보가 마스킹된 형태로 제공될 수 있습니다 (예: 홍**, ***-****-1234)\n")
	sb.WriteString("- 마스킹된 정보는 그대로 유지하면서 분석해주세요.\n\n")
	if prof.SystemPromptAddendum != "" {
		sb.WriteString(prof.SystemPromptAddendum)
		sb.WriteString("\n\n")
	}
	if withCases {
		sb.WriteString(contextualAnalysisSchema)
	} else {
		sb.WriteString(analysisSchema)
	}
	sb.WriteString(jsonInstruction)
	return sb.String()
}

// maxPromptCases caps the precedents quoted in the prompt.
const maxPromptCases = 3

// buildAnalysisUserPrompt assembles the clause-analysis user prompt.
func buildAnalysisUserPrompt(cr ClauseRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "조항: %s\n\n컨텍스트: 계약서 유형: %s", cr.Text, cr.ContractType)
	if len(cr.Cases) > 0 {
		sb.WriteString("\n\n관련 판례:\n")
		for i, cs := range cr.Cases {
			if i == maxPromptCases {
				break
			}
			fmt.Fprintf(&sb, "- %s: %s\n", cs.CaseNumber, cs.Summary)
		}
	}
	return sb.String()
}

// buildAlternativeSystemPrompt assembles the rewrite system prompt.
func buildAlternativeSystemPrompt(prof profile.Profile) string {
	var sb strings.Builder
	sb.WriteString("당신은 한국 계약법 전문가입니다.\n")
	sb.WriteString("문제가 있는 계약 조항을 공정하게 수정합니다.\n\n")
	sb.WriteString("주의사항:\n")
	sb.WriteString("- 개인정보가 마스킹된 형태로 제공될 수 있습니다\n")
	sb.WriteString("- 마스킹된 정보는 그대로 유지하면서 수정해주세요\n")
	sb.WriteString("- 수정된 조항만 출력하세요")
	if prof.SystemPromptAddendum != "" {
		sb.WriteString("\n\n")
		sb.WriteString(prof.SystemPromptAddendum)
	}
	return sb.String()
}

// buildAlternativeUserPrompt assembles the rewrite user prompt.
func buildAlternativeUserPrompt(original string, issues []string) string {
	return "원본 조항:\n" + original + "\n\n문제점:\n" + strings.Join(issues, "\n")
}

// buildRepairPrompt constructs the repair message. It includes the original
// user prompt and the previous invalid response so the LLM has full context.
func buildRepairPrompt(originalUserPrompt, previousResponse string, errs []ValidationError) string {
	var sb strings.Builder
	sb.WriteString(originalUserPrompt)
	sb.WriteString("\n\n이전 응답:\n")
	sb.WriteString(previousResponse)
	sb.WriteString("\n\n이전 응답이 올바르지 않습니다. 오류:\n")
	for _, e := range errs {
		fmt.Fprintf(&sb, "  - %s\n", e.Error())
	}
	sb.WriteString("\n형식에 맞는 JSON만 다시 출력하세요.")
	return sb.String()
}

// ── Provider dispatch ─────────────────────────────────────────────────────────

// defaultNewProvider dispatches to the appropriate provider implementation.
func defaultNewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Name) {
	case ProviderAnthropic, "":
		return newAnthropicProvider(cfg)
	case ProviderOpenAI:
		return newOpenAIProvider(cfg)
	case ProviderUpstage:
		return newUpstageProvider(cfg)
	case ProviderLocal:
		return newLocalProvider(cfg)
	case ProviderGoogle:
		return newGoogleProvider(cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Name)
	}
}

// apiKey returns cfg.APIKey or the named environment variable.
func apiKey(cfg ProviderConfig, envVar string) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if k := os.Getenv(envVar); k != "" {
		return k, nil
	}
	return "", fmt.Errorf("llm: %s environment variable not set", envVar)
}

// ── Anthropic provider ───────────────────────────────────────────────────────

// anthropicProvider implements Provider using the Anthropic SDK.
// anthropic.Client is a value type; the SDK's NewClient returns it by value.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(cfg ProviderConfig) (Provider, error) {
	key, err := apiKey(cfg, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicProvider{client: anthropic.NewClient(opts...), model: cfg.Model}, nil
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.JSON && !strings.Contains(system, jsonInstruction) {
		system += jsonInstruction
	}
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: messages.new: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		// "text" is the only content type that carries assistant text output.
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("anthropic: response contained no text content blocks")
	}
	return strings.Join(parts, ""), nil
}
