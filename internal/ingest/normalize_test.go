package ingest_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/ingest"
	"github.com/schoolquiz/quizd/internal/schedule"
)

func makeNormalizer(opts ...func(*ingest.Config)) *ingest.Normalizer {
	c := ingest.Config{
		Rand: rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return ingest.NewNormalizer(c)
}

func TestNormalize_KindInference(t *testing.T) {
	tests := map[string]struct {
		row  ingest.RawRow
		want domain.QuestionKind
	}{
		"labelled multiple choice with distractors": {
			row:  ingest.RawRow{Text: "q", Answer: "a", KindHint: "meerkeuze", Distractors: "b;c"},
			want: domain.MultipleChoice,
		},
		"labelled fill in": {
			row:  ingest.RawRow{Text: "q", Answer: "a", KindHint: "fill in the blanks"},
			want: domain.FillIn,
		},
		"no distractors overrides multiple choice label": {
			row:  ingest.RawRow{Text: "q", Answer: "a", KindHint: "meerkeuze"},
			want: domain.FillIn,
		},
		"whitespace-only distractors count as none": {
			row:  ingest.RawRow{Text: "q", Answer: "a", KindHint: "meerkeuze", Distractors: " ; , "},
			want: domain.FillIn,
		},
		"fill label wins over present distractors": {
			row:  ingest.RawRow{Text: "q", Answer: "a", KindHint: "fill in", Distractors: "b;c"},
			want: domain.FillIn,
		},
		"empty label with distractors": {
			row:  ingest.RawRow{Text: "q", Answer: "a", Distractors: "b"},
			want: domain.MultipleChoice,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			qs := makeNormalizer().Normalize([]ingest.RawRow{tt.row})
			require.Len(t, qs, 1)
			assert.Equal(t, tt.want, qs[0].Kind)
		})
	}
}

func TestNormalize_Options(t *testing.T) {
	qs := makeNormalizer().Normalize([]ingest.RawRow{{
		Text:        "capital of France?",
		Answer:      "Paris",
		KindHint:    "meerkeuze",
		Distractors: "London,,Berlin; Madrid ;",
	}})
	require.Len(t, qs, 1)

	q := qs[0]
	require.Equal(t, domain.MultipleChoice, q.Kind)

	// answer plus every non-empty distractor token, nothing else
	assert.Len(t, q.Options, 4)
	assert.Contains(t, q.Options, "Paris")
	assert.ElementsMatch(t, []string{"Paris", "London", "Berlin", "Madrid"}, q.Options)
}

func TestNormalize_OptionShuffleIsSeeded(t *testing.T) {
	row := ingest.RawRow{
		Text:        "q",
		Answer:      "a",
		Distractors: "b;c;d;e",
	}

	first := makeNormalizer().Normalize([]ingest.RawRow{row})
	second := makeNormalizer().Normalize([]ingest.RawRow{row})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Options, second[0].Options,
		"same seed should give the same option order")
}

func TestNormalize_FieldHandling(t *testing.T) {
	qs := makeNormalizer().Normalize([]ingest.RawRow{
		{
			Text:     "  what?  ",
			Answer:   " 42 ",
			Schedule: " day 1 hour 2 ",
			Category: " Math ",
		},
		{Text: "   "}, // empty prompt, dropped
		{},            // missing columns, dropped
	})
	require.Len(t, qs, 1)

	q := qs[0]
	assert.Equal(t, "what?", q.Text)
	assert.Equal(t, "42", q.Answer)
	assert.Equal(t, "Math", q.Category)
	assert.Equal(t, schedule.Key(102), q.Key)
	assert.Equal(t, "day 1 hour 2", q.ScheduleLabel)
	assert.Empty(t, q.Options)
}

func TestNormalize_Attachments(t *testing.T) {
	known := func(ref string) bool { return ref == "img/cat.png" }

	n := makeNormalizer(func(c *ingest.Config) {
		c.AttachmentValid = known
	})

	qs := n.Normalize([]ingest.RawRow{
		{Text: "q1", Answer: "a", Attachment: "img/cat.png"},
		{Text: "q2", Answer: "a", Attachment: "img/missing.png"},
		{Text: "q3", Answer: "a", Attachment: "  "},
	})
	require.Len(t, qs, 3)

	assert.Equal(t, "img/cat.png", qs[0].Attachment)
	assert.Empty(t, qs[1].Attachment, "unresolvable reference should be dropped")
	assert.Empty(t, qs[2].Attachment)
}
