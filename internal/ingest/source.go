package ingest

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
)

// Default column headers of the question sheet, matching the original
// Dutch sheet layout.
const (
	ColText        = "vragen."
	ColAnswer      = "goed antwoord"
	ColKindHint    = "meerkeuze of fill in the blanks."
	ColSchedule    = "dag+uur (voor volgorde)"
	ColCategory    = "vak."
	ColDistractors = "eventuele foute antwoorden (meerkeuze)"
	ColAttachment  = "bijlage"
)

// Headers names the sheet column feeding each question field. Headers are
// matched exactly against the first row; a header not present in the
// sheet leaves the field empty for every row. Empty fields fall back to
// the Dutch defaults. The JSON format has fixed field names and ignores
// Headers.
type Headers struct {
	Text        string
	Answer      string
	KindHint    string
	Schedule    string
	Category    string
	Distractors string
	Attachment  string
}

func (h Headers) withDefaults() Headers {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}

	fill(&h.Text, ColText)
	fill(&h.Answer, ColAnswer)
	fill(&h.KindHint, ColKindHint)
	fill(&h.Schedule, ColSchedule)
	fill(&h.Category, ColCategory)
	fill(&h.Distractors, ColDistractors)
	fill(&h.Attachment, ColAttachment)
	return h
}

// Source formats selectable via config.
const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Load reads the question pool at path in the given format and normalizes
// it. A missing file maps to a not-found error so the caller can keep the
// rest of the application usable with an empty pool.
func Load(format, path string, h Headers, n *Normalizer) ([]domain.Question, error) {
	var (
		rows []RawRow
		err  error
	)

	switch format {
	case FormatXLSX:
		rows, err = readXLSX(path, h.withDefaults())
	case FormatJSON:
		rows, err = readJSON(path)
	default:
		return nil, fmt.Errorf("ingest: unsupported source format %q", format)
	}

	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question source not found: %s", path),
			errors.WithCause(err),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	return n.Normalize(rows), nil
}

// readXLSX reads the first sheet, maps columns by the header row and
// returns one RawRow per data row.
func readXLSX(path string, h Headers) ([]RawRow, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(cells) < 2 {
		return nil, nil
	}

	col := make(map[string]int, len(cells[0]))
	for i, h := range cells[0] {
		col[h] = i
	}

	pick := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rows := make([]RawRow, 0, len(cells)-1)
	for _, r := range cells[1:] {
		rows = append(rows, RawRow{
			Text:        pick(r, h.Text),
			Answer:      pick(r, h.Answer),
			KindHint:    pick(r, h.KindHint),
			Schedule:    pick(r, h.Schedule),
			Category:    pick(r, h.Category),
			Distractors: pick(r, h.Distractors),
			Attachment:  pick(r, h.Attachment),
		})
	}
	return rows, nil
}

// jsonRow is the pool cache format: the same fields the sheet carries,
// distractors still as one delimited string.
type jsonRow struct {
	Text        string `json:"text"`
	Answer      string `json:"answer"`
	KindHint    string `json:"kind"`
	Schedule    string `json:"schedule"`
	Category    string `json:"category"`
	Distractors string `json:"distractors"`
	Attachment  string `json:"attachment"`
}

func readJSON(path string) ([]RawRow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []jsonRow
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	rows := make([]RawRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, RawRow(r))
	}
	return rows, nil
}

// DirChecker returns an attachment validator that accepts references
// resolving to an existing file under dir.
func DirChecker(dir string) func(string) bool {
	return func(ref string) bool {
		st, err := os.Stat(filepath.Join(dir, filepath.Clean(ref)))
		return err == nil && !st.IsDir()
	}
}
