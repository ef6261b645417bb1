package appreciation

import (
	"fmt"
	"math/rand/v2"
)

// Message is an appreciation shown to the learner
type Message struct {
	Text     string     `json:"text"`
	Type     MomentType `json:"type"`
	Evidence Evidence   `json:"evidence"`
}

// Generator phrases moments using templates
type Generator struct {
	templates map[MomentType][]string
	pick      func(n int) int
}

// NewGenerator creates a generator with the default templates. pick chooses
// among a moment's templates; nil picks at random.
func NewGenerator(pick func(n int) int) *Generator {
	if pick == nil {
		pick = rand.IntN
	}
	return &Generator{templates: defaultTemplates(), pick: pick}
}

// Generate phrases a moment, or returns nil for an unknown type
func (g *Generator) Generate(m *Moment) *Message {
	if m == nil {
		return nil
	}
	templates := g.templates[m.Type]
	if len(templates) == 0 {
		return nil
	}
	tmpl := templates[g.pick(len(templates))]

	return &Message{
		Text:     format(tmpl, m),
		Type:     m.Type,
		Evidence: m.Evidence,
	}
}

func format(tmpl string, m *Moment) string {
	e := m.Evidence
	switch m.Type {
	case MomentTaskComplete, MomentFlawless:
		return fmt.Sprintf(tmpl, e.TaskTitle)
	case MomentNoHintsNeeded, MomentPersistence:
		return fmt.Sprintf(tmpl, mistakes(e.Mistakes))
	case MomentMinimalHints:
		if e.Hints == 1 {
			return fmt.Sprintf(tmpl, "just one hint")
		}
		return fmt.Sprintf(tmpl, fmt.Sprintf("only %d hints", e.Hints))
	case MomentLevelUp, MomentMaxLevel:
		return fmt.Sprintf(tmpl, e.Level)
	case MomentStreak:
		return fmt.Sprintf(tmpl, e.Streak)
	default:
		return tmpl
	}
}

func mistakes(n int) string {
	if n == 1 {
		return "1 wrong answer"
	}
	return fmt.Sprintf("%d wrong answers", n)
}

func defaultTemplates() map[MomentType][]string {
	return map[MomentType][]string{
		MomentTaskComplete: {
			"%s complete. Keep going.",
			"Finished %s. Every task adds up.",
		},
		MomentFlawless: {
			"%s without a single hint or mistake. That shows solid understanding.",
			"Flawless run through %s. Your preparation shows.",
		},
		MomentNoHintsNeeded: {
			"No hints needed, and you worked past %s on your own.",
			"You pushed through %s without asking for help. Well done.",
		},
		MomentMinimalHints: {
			"Completed with %s. You're relying less on guidance.",
			"Only %s needed. Your confidence is growing.",
		},
		MomentPersistence: {
			"You kept at it through %s. That's how skills are built.",
			"%s didn't stop you. Persistence pays off.",
		},
		MomentLevelUp: {
			"Level %d reached. New challenges are open to you.",
			"Welcome to level %d. Harder tasks will start showing up in your recommendations.",
		},
		MomentMaxLevel: {
			"Level %d: the top. Every task is fair game now.",
		},
		MomentStreak: {
			"%d days in a row. Consistency beats intensity.",
			"A %d-day streak. Keep the habit going.",
		},
	}
}

// ShouldAppreciate decides whether a moment is worth showing given how
// long ago the last appreciation was
func ShouldAppreciate(minutesSinceLast int, momentPriority int) bool {
	switch {
	case momentPriority >= 8:
		return true
	case momentPriority >= 5:
		return minutesSinceLast >= 30
	default:
		return minutesSinceLast >= 60
	}
}
