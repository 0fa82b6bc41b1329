// Package generator produces marketing drafts and comment replies through an
// OpenAI-compatible chat completions API. Theme, service, and style selection
// is steered by how past records performed.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"beacon/internal/content"
	"beacon/internal/logging"
)

// Completer abstracts the chat completions client for tests.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Engine assembles prompts and drives the completion client.
type Engine struct {
	chat   Completer
	logger *slog.Logger
	pick   func(n int) int
}

// NewEngine builds a generation engine. The logger may be nil.
func NewEngine(chat Completer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		chat:   chat,
		logger: logging.NewComponentLogger(logger, "generator"),
		pick:   rand.IntN,
	}
}

// Generate produces a complete draft. History steers parameter selection;
// an empty history falls back to seed values. The marketing body is required,
// so a completion failure surfaces as an error. The video script degrades to
// a canned outline when its completion fails.
func (e *Engine) Generate(ctx context.Context, history []*content.Item) (content.Draft, error) {
	theme := e.chooseTheme(history)
	service := e.chooseService(history)
	style := e.chooseStyle(history)

	e.logger.Info("generating draft",
		logging.String("theme", theme),
		logging.String("service", service),
		logging.String("style", style))

	body, err := e.chat.Complete(ctx, []Message{{Role: "user", Content: bodyPrompt(service, theme, style)}})
	if err != nil {
		return content.Draft{}, err
	}

	script, err := e.chat.Complete(ctx, []Message{{Role: "user", Content: scriptPrompt(service, theme, style)}})
	if err != nil {
		e.logger.Warn("script completion failed, using canned outline", logging.Error(err))
		script = cannedScript(service, theme)
	}

	return content.Draft{
		Title:      fmt.Sprintf("%s: %s", service, theme),
		Theme:      theme,
		Service:    service,
		Style:      style,
		BodyText:   body,
		ScriptText: script,
	}, nil
}

// GenerateReply produces a signed reply to an audience comment. A completion
// failure degrades to a canned reply so the comment never goes unanswered.
func (e *Engine) GenerateReply(ctx context.Context, comment content.Comment) (string, error) {
	persona := personas[e.pick(len(personas))]

	reply, err := e.chat.Complete(ctx, []Message{{Role: "user", Content: replyPrompt(persona, comment.Text)}})
	if err != nil {
		e.logger.Warn("reply completion failed, using canned reply",
			logging.String(logging.FieldCommentID, comment.ID),
			logging.Error(err))
		return cannedReply(persona), nil
	}
	if !strings.Contains(reply, persona.Name) {
		reply += signature(persona)
	}
	return reply, nil
}

// ImageKeywords condenses a theme into a short photo search query. On
// completion failure the theme itself is returned.
func (e *Engine) ImageKeywords(ctx context.Context, theme string) string {
	keywords, err := e.chat.Complete(ctx, []Message{{Role: "user", Content: keywordsPrompt(theme)}})
	if err != nil || strings.TrimSpace(keywords) == "" {
		return theme
	}
	return strings.TrimSpace(keywords)
}

// chooseTheme prefers the theme with the highest accumulated positive
// reactions, falling back to a random seed theme.
func (e *Engine) chooseTheme(history []*content.Item) string {
	if best := bestByReactions(history, func(item *content.Item) string { return item.Theme }); best != "" {
		return best
	}
	return seedThemes[e.pick(len(seedThemes))]
}

// chooseService prefers the catalog service with the highest accumulated
// positive reactions.
func (e *Engine) chooseService(history []*content.Item) string {
	best := bestByReactions(history, func(item *content.Item) string { return item.Service })
	for _, svc := range serviceCatalog {
		if svc == best {
			return best
		}
	}
	return serviceCatalog[e.pick(len(serviceCatalog))]
}

// chooseStyle prefers the most frequently used known style.
func (e *Engine) chooseStyle(history []*content.Item) string {
	counts := make(map[string]int)
	for _, item := range history {
		if item.Style != "" {
			counts[item.Style]++
		}
	}
	best, bestCount := "", 0
	for _, style := range styleCatalog {
		if counts[style] > bestCount {
			best, bestCount = style, counts[style]
		}
	}
	if best != "" {
		return best
	}
	return styleCatalog[e.pick(len(styleCatalog))]
}

func bestByReactions(history []*content.Item, key func(*content.Item) string) string {
	scores := make(map[string]int)
	order := make([]string, 0)
	for _, item := range history {
		k := strings.TrimSpace(key(item))
		if k == "" {
			continue
		}
		if _, seen := scores[k]; !seen {
			order = append(order, k)
		}
		scores[k] += item.PositiveReactions + 1
	}
	best, bestScore := "", 0
	for _, k := range order {
		if scores[k] > bestScore {
			best, bestScore = k, scores[k]
		}
	}
	return best
}

func bodyPrompt(service, theme, style string) string {
	return fmt.Sprintf(`You are a senior content creator for a digital services agency.

Write a social media marketing post.

Parameters:
- Service: %s
- Theme: %s
- Tone: %s

Requirements:
- Open with a hook of at most 8 words.
- 2-3 short paragraphs mixing a technical insight with its business impact.
- Close with a soft call to action offering a free consultation.
- Length 120-180 words, 3-5 emojis, 3-5 relevant hashtags.

Return only the final post, ready to publish.`, service, theme, style)
}

func scriptPrompt(service, theme, style string) string {
	return fmt.Sprintf(`You are directing a 30-45 second vertical video for a digital services agency.

Write the shooting script.

Parameters:
- Service: %s
- Theme: %s
- Tone: %s

Structure:
- [0-5s] visual hook with an on-screen question or statistic.
- [5-25s] one concrete insight and one practical application.
- [25-40s] short proof point and a clear call to action.
- [40-45s] logo and contact overlay.

Include the full speaker dialogue with delivery notes.`, service, theme, style)
}

func keywordsPrompt(theme string) string {
	return fmt.Sprintf(`Condense this marketing theme into a photo search query.

Theme: %q

Return at most 3 keywords on a single line, nothing else.`, theme)
}

func replyPrompt(persona Persona, comment string) string {
	return fmt.Sprintf(`You are %s, %s (%s team) at a digital services agency.
Specialty: %s.

A customer left this comment on one of the agency's posts:
%q

Write a reply that:
- thanks them personally for the comment,
- adds one small piece of useful insight,
- gently invites them to continue the conversation in private,
- ends with your full signature (name, role, team) and this signoff: %q.

Keep it between 40 and 80 words with at most 2 emojis.
Return only the final reply.`, persona.Name, persona.Role, persona.Team, persona.Specialty, comment, persona.Signoff)
}

func cannedReply(persona Persona) string {
	return "Thank you for your comment, we really appreciate the feedback!\n\n" +
		"Our team would be glad to discuss this in more detail and suggest solutions " +
		"tailored to your needs. Feel free to reach out in private for a free consultation." +
		signature(persona)
}

func signature(persona Persona) string {
	return fmt.Sprintf("\n\n%s\n%s | %s\n%s", persona.Name, persona.Role, persona.Team, persona.Signoff)
}

func cannedScript(service, theme string) string {
	return fmt.Sprintf(`[0-5s] Hook: Looking to improve %s?
[5-25s] One concrete way %s helps, explained simply.
[25-40s] A short client result, then: message us "CONSULT" for a free audit.
[40-45s] Logo and contact overlay.`, strings.ToLower(theme), strings.ToLower(service))
}
