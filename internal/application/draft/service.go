package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-api-mailer/internal/domain"
	"github.com/go-api-mailer/internal/infrastructure/llm"
	"github.com/go-api-mailer/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	DefaultSubjects = 5
	MaxSubjects     = 20
)

// Tones lists the drafts requested from the model, in order.
var Tones = []string{"Professional", "Requesting", "Human", "Friendly", "Direct/Assertive", "Concise"}

type Service interface {
	Improve(ctx context.Context, description, emailContext string) []domain.EmailDraft
	Subjects(ctx context.Context, tone, emailContent string, n int) []string
}

type ServiceDeps struct {
	LLM     llm.Completer
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type service struct {
	llm     llm.Completer
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewService(d ServiceDeps) Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &service{llm: d.LLM, metrics: m, log: log.With(zap.String("component", "draft"))}
}

// Improve never returns an error; callers get an empty list when the model
// is unavailable or answers with something unparseable.
func (s *service) Improve(ctx context.Context, description, emailContext string) []domain.EmailDraft {
	var out struct {
		Drafts []domain.EmailDraft `json:"drafts"`
	}
	if err := s.ask(ctx, "improve", improvePrompt(emailContext, description), &out); err != nil {
		return []domain.EmailDraft{}
	}
	if out.Drafts == nil {
		return []domain.EmailDraft{}
	}
	return out.Drafts
}

func (s *service) Subjects(ctx context.Context, tone, emailContent string, n int) []string {
	n = ClampSubjects(n)
	var out struct {
		Subjects []string `json:"subjects"`
	}
	if err := s.ask(ctx, "subjects", subjectsPrompt(tone, emailContent, n), &out); err != nil {
		return []string{}
	}
	if out.Subjects == nil {
		return []string{}
	}
	return out.Subjects
}

func (s *service) ask(ctx context.Context, op, prompt string, dst any) error {
	if s.llm == nil {
		s.metrics.LLMRequests.WithLabelValues(op, "error").Inc()
		s.log.Warn("llm not configured", zap.String("operation", op))
		return llm.ErrNotConfigured
	}
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.metrics.LLMRequests.WithLabelValues(op, "error").Inc()
		if errors.Is(err, llm.ErrNotConfigured) {
			s.log.Warn("llm not configured", zap.String("operation", op))
		} else {
			s.log.Error("llm call failed", zap.String("operation", op), zap.Error(err))
		}
		return err
	}
	if err := json.Unmarshal([]byte(CleanJSON(raw)), dst); err != nil {
		s.metrics.LLMRequests.WithLabelValues(op, "parse_error").Inc()
		s.log.Error("llm reply is not valid JSON", zap.String("operation", op), zap.Error(err))
		return err
	}
	s.metrics.LLMRequests.WithLabelValues(op, "ok").Inc()
	return nil
}

// ClampSubjects applies the default and upper bound to a requested count.
func ClampSubjects(n int) int {
	switch {
	case n <= 0:
		return DefaultSubjects
	case n > MaxSubjects:
		return MaxSubjects
	}
	return n
}

// CleanJSON strips the markdown code fences models like to wrap JSON in.
func CleanJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func improvePrompt(emailContext, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Task:
Generate email drafts based on:
Context: %q
Description: %q

Formatting rules:
- STRUCTURE: The body MUST be divided into at least 3 distinct paragraphs.
- NEWLINES: Use exactly "\n\n" (escaped newline) to separate the greeting from the body, paragraphs from each other, and the body from the sign-off.
- VISUAL: The final string should read like a professionally formatted letter, not a continuous block.
- NO WRAPPERS: Do not use HTML tags like <p>. Use only plain text with \n\n.

Special instructions:
- If the context is job, referral, internship or career related:
  - Add meaningful professional detail that would impress recruiters or senior professionals.
  - Highlight skills, impact, intent and value without sounding exaggerated.
  - Include a polite line mentioning "I will attach my CV for reference".
- If the context is professional (clients, managers, academics, business):
  - Maintain clarity, respect and confidence.
  - Use concise but impactful language.

Required JSON structure (exactly this format):
{
  "drafts": [
`, emailContext, description)
	for i, tone := range Tones {
		sep := ","
		if i == len(Tones)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    { \"tone\": %q, \"subject\": \"...\", \"body\": \"...\" }%s\n", tone, sep)
	}
	b.WriteString(`  ]
}

Rules:
- Keep emails realistic and human-written.
- No emojis unless the tone is Friendly.
- Each body must be complete and ready to send.
- Keep language natural, confident and professional.
`)
	return b.String()
}

func subjectsPrompt(tone, emailContent string, n int) string {
	return fmt.Sprintf(`Return ONLY raw JSON. NO markdown.
{
  "subjects": ["subject 1", "subject 2"]
}
Tone: %s
Email Content: %s
Generate %d subject lines.
`, tone, emailContent, n)
}
