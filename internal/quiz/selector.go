// Package quiz builds per-attempt question lists and tracks progress
// through them.
package quiz

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
)

// OrderPolicy decides how a session's questions are picked and ordered.
type OrderPolicy string

const (
	// OrderRandom draws each category's quota uniformly at random and
	// shuffles the combined list.
	OrderRandom OrderPolicy = "random"
	// OrderSchedule fills quotas walking the pool in ascending schedule
	// key order and presents the result sorted by that key.
	OrderSchedule OrderPolicy = "schedule"
)

// Select builds the question list for one session. Quotas map category to
// the number of questions to draw; matching is case- and trim-insensitive.
// When any category cannot be filled, Select returns a failed-precondition
// error naming every short category and no session list.
func Select(pool []domain.Question, quotas map[string]int, policy OrderPolicy, rng *rand.Rand) ([]domain.Question, error) {
	want := make(map[string]int, len(quotas))
	for cat, n := range quotas {
		if n > 0 {
			want[canonCategory(cat)] = n
		}
	}

	switch policy {
	case OrderRandom:
		return selectRandom(pool, want, rng)
	case OrderSchedule:
		return selectScheduled(pool, want)
	default:
		return nil, fmt.Errorf("quiz: unknown order policy %q", policy)
	}
}

func selectRandom(pool []domain.Question, want map[string]int, rng *rand.Rand) ([]domain.Question, error) {
	byCat := make(map[string][]int)
	for i, q := range pool {
		cat := canonCategory(q.Category)
		if _, ok := want[cat]; ok {
			byCat[cat] = append(byCat[cat], i)
		}
	}

	if short := shortfall(want, func(cat string) int { return len(byCat[cat]) }); len(short) > 0 {
		return nil, shortfallError(short)
	}

	// Draw categories in a fixed order so a seeded rng gives a
	// reproducible selection.
	cats := make([]string, 0, len(want))
	for cat := range want {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var picked []domain.Question
	for _, cat := range cats {
		idx := byCat[cat]
		for _, j := range rng.Perm(len(idx))[:want[cat]] {
			picked = append(picked, pool[idx[j]])
		}
	}

	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked, nil
}

func selectScheduled(pool []domain.Question, want map[string]int) ([]domain.Question, error) {
	ordered := make([]domain.Question, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Key < ordered[j].Key
	})

	remaining := make(map[string]int, len(want))
	for cat, n := range want {
		remaining[cat] = n
	}

	var picked []domain.Question
	left := 0
	for _, n := range remaining {
		left += n
	}

	for _, q := range ordered {
		if left == 0 {
			break
		}
		cat := canonCategory(q.Category)
		if remaining[cat] > 0 {
			picked = append(picked, q)
			remaining[cat]--
			left--
		}
	}

	if left > 0 {
		var short []string
		for cat, n := range remaining {
			if n > 0 {
				short = append(short, fmt.Sprintf("%s (missing %d)", cat, n))
			}
		}
		sort.Strings(short)
		return nil, shortfallError(short)
	}

	// The walk already visits questions in key order, so picked is sorted.
	return picked, nil
}

func shortfall(want map[string]int, available func(cat string) int) []string {
	var short []string
	for cat, n := range want {
		if have := available(cat); have < n {
			short = append(short, fmt.Sprintf("%s (want %d, have %d)", cat, n, have))
		}
	}
	sort.Strings(short)
	return short
}

func shortfallError(short []string) error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("question pool cannot fill quotas: %s", strings.Join(short, ", ")),
	)
}

func canonCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
