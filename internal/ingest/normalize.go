// Package ingest turns the loosely structured question source into
// normalized domain.Question values.
package ingest

import (
	"math/rand"
	"strings"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/schedule"
)

// RawRow is one row of the question source, columns already matched by
// header name. Missing columns are empty strings.
type RawRow struct {
	Text        string
	Answer      string
	KindHint    string
	Schedule    string
	Category    string
	Distractors string
	Attachment  string
}

type Config struct {
	// Rand shuffles option lists. Required.
	Rand *rand.Rand

	// AttachmentValid reports whether an attachment reference resolves.
	// Unresolvable references are dropped from the question. Nil keeps
	// every non-empty reference.
	AttachmentValid func(ref string) bool
}

// Normalizer converts raw rows into questions.
type Normalizer struct {
	rng     *rand.Rand
	checkAt func(string) bool
}

func NewNormalizer(c Config) *Normalizer {
	return &Normalizer{
		rng:     c.Rand,
		checkAt: c.AttachmentValid,
	}
}

// Normalize converts rows into questions. Rows with empty prompt text are
// skipped. Output order follows input order; callers sort by schedule key
// when they need the schedule order.
func (n *Normalizer) Normalize(rows []RawRow) []domain.Question {
	qs := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		q, ok := n.normalizeRow(row)
		if !ok {
			continue
		}
		qs = append(qs, q)
	}
	return qs
}

func (n *Normalizer) normalizeRow(row RawRow) (domain.Question, bool) {
	text := strings.TrimSpace(row.Text)
	if text == "" {
		return domain.Question{}, false
	}

	rawSchedule := strings.TrimSpace(row.Schedule)

	q := domain.Question{
		Text:          text,
		Answer:        strings.TrimSpace(row.Answer),
		Category:      strings.TrimSpace(row.Category),
		Key:           schedule.Parse(rawSchedule),
		ScheduleLabel: rawSchedule,
		Attachment:    n.attachment(row.Attachment),
	}

	distractors := splitDistractors(row.Distractors)

	// A row with no distractor data is fill-in no matter what the type
	// column claims. Source sheets mislabel this often enough that the
	// label alone cannot be trusted.
	switch {
	case len(distractors) == 0:
		q.Kind = domain.FillIn
	case strings.Contains(strings.ToLower(row.KindHint), "fill"):
		q.Kind = domain.FillIn
	default:
		q.Kind = domain.MultipleChoice
		q.Options = n.shuffledOptions(q.Answer, distractors)
	}

	return q, true
}

// splitDistractors breaks the single delimited distractor cell into tokens.
// Commas and semicolons both separate, runs collapse, empty tokens drop.
func splitDistractors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var out []string
	for _, tok := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func (n *Normalizer) shuffledOptions(answer string, distractors []string) []string {
	opts := make([]string, 0, 1+len(distractors))
	opts = append(opts, answer)
	opts = append(opts, distractors...)

	n.rng.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})
	return opts
}

func (n *Normalizer) attachment(raw string) string {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return ""
	}
	if n.checkAt != nil && !n.checkAt(ref) {
		return ""
	}
	return ref
}
