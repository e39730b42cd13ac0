package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"facility-inspect/internal/config"
	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"
)

// User-facing texts returned by the AI client.
const (
	MsgAINoKey       = "Gemini API key not configured."
	MsgAITimeout     = "Request timed out. Please try again."
	MsgAISafety      = "Response was blocked for safety reasons. Please try rephrasing your request."
	MsgAIEmpty       = "Could not generate response."
	MsgAINoFindings  = "Please complete some checklist items before generating a report."
	msgAITruncated   = "\n\n[Note: Response was truncated. Consider running analysis again.]"
	fallbackModel    = "models/gemini-2.5-flash"
	captionPrompt    = "Describe this facilities inspection photo in one short sentence. Mention any cleanliness, damage or safety issue you can see."
	aiServiceName    = "gemini"
	maxErrorBodySize = 4096
)

// Finding is one checklist line fed into the prompt.
type Finding struct {
	Item         string       `json:"item"`
	Rating       model.Rating `json:"rating"`
	Notes        string       `json:"notes,omitempty"`
	PhotoCaption string       `json:"photo_caption,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type geminiModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// AIService talks to the Gemini REST API.
type AIService struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client

	mu         sync.Mutex
	discovered string
}

func NewAIService(cfg config.AIConfig) *AIService {
	m := strings.TrimSpace(cfg.Model)
	if m != "" && !strings.HasPrefix(m, "models/") {
		m = "models/" + m
	}
	return &AIService{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   m,
		timeout: cfg.Timeout(),
		client:  &http.Client{},
	}
}

func (s *AIService) Enabled() bool { return s.apiKey != "" }

// BuildPrompt assembles the APPA analysis prompt. Unrated findings are left out.
func BuildPrompt(inspectionType, building string, findings []Finding) string {
	var counts [6]int
	var lines []string
	for _, f := range findings {
		if f.Rating <= model.NotRated || !f.Rating.Valid() {
			continue
		}
		counts[f.Rating]++
		line := fmt.Sprintf("- %s: Level %d", f.Item, int(f.Rating))
		if strings.TrimSpace(f.Notes) != "" {
			line += fmt.Sprintf(" (Inspector Notes: %s)", f.Notes)
		}
		if strings.TrimSpace(f.PhotoCaption) != "" {
			line += fmt.Sprintf(" (Photo: %s)", f.PhotoCaption)
		}
		lines = append(lines, line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a facilities management expert analyzing %s inspection data for %s using APPA standards.\n\n",
		strings.ToLower(inspectionType), building)
	b.WriteString("**INSPECTION SUMMARY:**\n")
	for lvl := 1; lvl <= 5; lvl++ {
		fmt.Fprintf(&b, "• Level %d: %d items\n", lvl, counts[lvl])
	}
	b.WriteString("\n**DETAILED FINDINGS:**\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString(`

**PROVIDE CONCISE ANALYSIS:**

**OVERALL APPA LEVEL:** [Assign 1-5 with 2-sentence justification]

**STRENGTHS:** [List 2-3 key Level 1-2 achievements]

**URGENT ISSUES:** [List Level 4-5 items requiring immediate action]

**ACTION PLAN:** [3-4 specific, prioritized recommendations]

**MANAGEMENT ASSESSMENT:** [Brief comment on facility management effectiveness]

Keep response under 400 words. Focus on actionable insights and APPA compliance.`)
	return b.String()
}

// Summarize returns the assessment text. On failure the text is the message
// to show the user and err says why.
func (s *AIService) Summarize(ctx context.Context, inspectionType, building string, findings []Finding) (string, error) {
	if len(findings) == 0 {
		return MsgAINoFindings, validation("items", MsgAINoFindings)
	}
	if !s.Enabled() {
		return MsgAINoKey, &ExternalServiceError{Service: aiServiceName, Message: MsgAINoKey}
	}
	prompt := BuildPrompt(inspectionType, building, findings)
	return s.generate(ctx, []geminiPart{{Text: prompt}})
}

// Caption describes one photo using the vision-capable model.
func (s *AIService) Caption(ctx context.Context, mimeType string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", &ExternalServiceError{Service: aiServiceName, Message: MsgAINoKey}
	}
	parts := []geminiPart{
		{Text: captionPrompt},
		{InlineData: &geminiInlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
	}
	text, err := s.generate(ctx, parts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *AIService) generate(ctx context.Context, parts []geminiPart) (string, error) {
	modelName := s.ModelName(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{Temperature: 0.7, MaxOutputTokens: 4000, TopP: 0.9},
	})
	if err != nil {
		return s.callFailed(fmt.Errorf("encode request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", s.baseURL, modelName, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return s.callFailed(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.callFailed(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.callFailed(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := truncateText(string(data), maxErrorBodySize)
		msg := fmt.Sprintf("API Error: %d - %s", resp.StatusCode, body)
		logger.Warn("ai.status", "status", resp.StatusCode, "model", modelName)
		return msg, &ExternalServiceError{Service: aiServiceName, Status: resp.StatusCode, Message: msg}
	}

	var result geminiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return s.callFailed(fmt.Errorf("decode response: %w", err))
	}
	if len(result.Candidates) == 0 {
		return MsgAIEmpty, &ExternalServiceError{Service: aiServiceName, Message: MsgAIEmpty}
	}
	cand := result.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return MsgAISafety, &ExternalServiceError{Service: aiServiceName, Message: MsgAISafety}
	}
	var text string
	if len(cand.Content.Parts) > 0 {
		text = cand.Content.Parts[0].Text
	}
	if text == "" {
		return MsgAIEmpty, &ExternalServiceError{Service: aiServiceName, Message: MsgAIEmpty}
	}
	if cand.FinishReason == "MAX_TOKENS" {
		text += msgAITruncated
	}
	logger.Info("ai.generate", "model", modelName, "finish", cand.FinishReason, "chars", len(text))
	return text, nil
}

func (s *AIService) callFailed(err error) (string, error) {
	if isTimeout(err) {
		logger.Warn("ai.timeout", "err", err)
		return MsgAITimeout, &ExternalServiceError{Service: aiServiceName, Message: MsgAITimeout, Err: err}
	}
	logger.Error("ai.call_failed", "err", err)
	msg := fmt.Sprintf("Error calling AI service: %v", err)
	return msg, &ExternalServiceError{Service: aiServiceName, Message: msg, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ModelName returns the configured model, or discovers one on first use.
// Only a successful discovery is cached; until then each call retries and
// uses the fallback.
func (s *AIService) ModelName(ctx context.Context) string {
	if s.model != "" {
		return s.model
	}
	s.mu.Lock()
	cached := s.discovered
	s.mu.Unlock()
	if cached != "" {
		return cached
	}

	name, err := s.discover(context.WithoutCancel(ctx))
	if err != nil {
		logger.Warn("ai.discover_failed", "err", err)
		return fallbackModel
	}
	s.mu.Lock()
	if s.discovered == "" {
		s.discovered = name
	}
	name = s.discovered
	s.mu.Unlock()
	return name
}

// DiscoverModel picks the newest text-generation Gemini model the key can
// use, falling back to a fixed default on any error.
func (s *AIService) DiscoverModel(ctx context.Context) string {
	name, err := s.discover(ctx)
	if err != nil {
		logger.Warn("ai.discover_failed", "err", err)
		return fallbackModel
	}
	return name
}

func (s *AIService) discover(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models?key=%s", s.baseURL, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("list models: status %d", resp.StatusCode)
	}

	var list geminiModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("decode models: %w", err)
	}
	var names []string
	for _, m := range list.Models {
		name := strings.ToLower(m.Name)
		if !strings.Contains(name, "gemini") || strings.Contains(name, "embedding") {
			continue
		}
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, m.Name)
				break
			}
		}
	}
	if len(names) == 0 {
		return "", errors.New("no generateContent gemini model available")
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	logger.Info("ai.model_discovered", "model", names[0], "candidates", len(names))
	return names[0], nil
}

// truncateText cuts s to at most limit bytes without splitting a rune.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.ToValidUTF8(s[:cut], "\uFFFD")
}
