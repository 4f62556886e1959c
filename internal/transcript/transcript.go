// Package transcript persists finished conversations as JSON files named
// {YYYY-MM-DD}-conversation-{id}.json.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arguewith/arena/internal/domain"
)

// ErrCorrupt marks a transcript file that exists but does not decode.
var ErrCorrupt = errors.New("transcript: corrupt conversation record")

// FileStore keeps transcripts in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created lazily on Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory transcripts are kept in.
func (s *FileStore) Dir() string {
	return s.dir
}

// FileName returns the file name a conversation is saved under.
func FileName(conv *domain.Conversation) string {
	return fmt.Sprintf("%s-conversation-%s.json", conv.StartTime.UTC().Format("2006-01-02"), conv.ID)
}

func marker(id string) string {
	return "conversation-" + id
}

// Save writes conv and returns the path written.
func (s *FileStore) Save(ctx context.Context, conv *domain.Conversation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("transcript: create directory: %w", err)
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return "", fmt.Errorf("transcript: encode %s: %w", conv.ID, err)
	}
	path := filepath.Join(s.dir, FileName(conv))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("transcript: write %s: %w", path, err)
	}
	return path, nil
}

// Load returns the conversation whose file name contains conversation-{id}.
// It returns nil, nil when there is no such file, and an error wrapping
// ErrCorrupt when the file does not decode.
func (s *FileStore) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	paths, err := s.match(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("transcript: read %s: %w", paths[0], err)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, filepath.Base(paths[0]), err)
		}
		return nil, fmt.Errorf("transcript: decode %s: %w", paths[0], err)
	}
	return &conv, nil
}

// Delete removes every file whose name contains conversation-{id}. A missing
// directory or no matching files is not an error.
func (s *FileStore) Delete(ctx context.Context, id string) (int, error) {
	paths, err := s.match(ctx, id)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("transcript: delete %s: %w", p, err)
		}
		removed++
	}
	return removed, nil
}

// List returns the ids of all stored transcripts, oldest file name first.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, name := range names {
		i := strings.Index(name, "conversation-")
		if i < 0 || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name[i+len("conversation-"):], ".json"))
	}
	return ids, nil
}

func (s *FileStore) match(ctx context.Context, id string) ([]string, error) {
	if id == "" {
		return nil, nil
	}
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	m := marker(id)
	var out []string
	for _, name := range names {
		if strings.Contains(name, m) {
			out = append(out, filepath.Join(s.dir, name))
		}
	}
	return out, nil
}

func (s *FileStore) names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: read directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
