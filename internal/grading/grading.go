// Package grading decides whether a submitted answer matches the expected one.
package grading

import (
	"strings"

	"github.com/schoolquiz/quizd/internal/domain"
)

// IsCorrect grades a single submission.
//
// Multiple-choice answers are compared verbatim: the submission is one of the
// presented options, so it already matches the stored spelling or it is wrong.
// Fill-in answers are compared after normalization, tolerating case and
// punctuation differences but nothing else.
func IsCorrect(submitted, expected string, kind domain.QuestionKind) bool {
	if kind == domain.MultipleChoice {
		return submitted == expected
	}

	return normalize(submitted) == normalize(expected)
}

// normalize keeps ASCII letters and digits, lower-cased. "Paris." and
// "par is" both normalize to "paris".
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}
