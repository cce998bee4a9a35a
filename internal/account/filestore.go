package account

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/schoolquiz/quizd/internal/domain"
	"github.com/schoolquiz/quizd/internal/errors"
)

// fileRecord is the on-disk shape of one account. Field names match the
// historical users file, so existing files keep working.
type fileRecord struct {
	PasswordHash string `json:"pw"`
	HighScore    int    `json:"highscore"`
}

// FileStore keeps all accounts in a single JSON object mapping username
// to record. The whole file is read at open and rewritten on every
// mutation; a mutex serializes writers so concurrent flushes cannot lose
// an update.
type FileStore struct {
	path string

	mu       sync.Mutex
	accounts map[string]fileRecord
	order    []string         // usernames in creation order
	index    map[string]int64 // username to position in order
}

// OpenFileStore loads the users file at path. A missing file is an empty
// store; the file is created on the first mutation.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		accounts: make(map[string]fileRecord),
		index:    make(map[string]int64),
	}

	b, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("account: read users file: %w", err)
	}

	if err := s.decode(b); err != nil {
		return nil, fmt.Errorf("account: parse users file %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, username string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[username]
	if !ok {
		return domain.Account{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("account not found: %s", username),
		)
	}
	return s.toDomain(username, rec), nil
}

func (s *FileStore) Create(_ context.Context, a domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.Username]; ok {
		return domain.Account{}, errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("username already taken: %s", a.Username),
		)
	}

	s.accounts[a.Username] = fileRecord{
		PasswordHash: a.PasswordHash,
		HighScore:    a.HighScore,
	}
	s.index[a.Username] = int64(len(s.order))
	s.order = append(s.order, a.Username)

	if err := s.flush(); err != nil {
		delete(s.accounts, a.Username)
		delete(s.index, a.Username)
		s.order = s.order[:len(s.order)-1]
		return domain.Account{}, err
	}
	return s.toDomain(a.Username, s.accounts[a.Username]), nil
}

func (s *FileStore) UpdateHighScore(_ context.Context, username string, score int) (domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[username]
	if !ok {
		return domain.Account{}, false, errors.New(errors.CodeNotFound,
			errors.WithMessagef("account not found: %s", username),
		)
	}

	if score <= rec.HighScore {
		return s.toDomain(username, rec), false, nil
	}

	old := rec.HighScore
	rec.HighScore = score
	s.accounts[username] = rec

	if err := s.flush(); err != nil {
		rec.HighScore = old
		s.accounts[username] = rec
		return domain.Account{}, false, err
	}
	return s.toDomain(username, rec), true, nil
}

func (s *FileStore) List(_ context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Account, 0, len(s.order))
	for _, u := range s.order {
		out = append(out, s.toDomain(u, s.accounts[u]))
	}
	return out, nil
}

func (s *FileStore) toDomain(username string, rec fileRecord) domain.Account {
	return domain.Account{
		Username:     username,
		PasswordHash: rec.PasswordHash,
		HighScore:    rec.HighScore,
		Seq:          s.seq(username),
	}
}

func (s *FileStore) seq(username string) int64 {
	if i, ok := s.index[username]; ok {
		return i
	}
	return int64(len(s.order))
}

// decode reads the users object with a token stream instead of a plain
// map so the key order in the file survives as creation order.
func (s *FileStore) decode(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		username := keyTok.(string)

		var rec fileRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("record for %s: %w", username, err)
		}

		s.accounts[username] = rec
		s.index[username] = int64(len(s.order))
		s.order = append(s.order, username)
	}

	_, err = dec.Token() // closing brace
	return err
}

// flush rewrites the whole file, keys in creation order. Callers hold mu.
func (s *FileStore) flush() error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, u := range s.order {
		key, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("account: encode username: %w", err)
		}
		rec, err := json.Marshal(s.accounts[u])
		if err != nil {
			return fmt.Errorf("account: encode record: %w", err)
		}

		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(rec)
		if i < len(s.order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("account: write users file: %w", err)
	}
	return nil
}
