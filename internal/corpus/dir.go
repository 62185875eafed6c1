package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DirSource reads documents stored as <id>.txt files in one directory.
type DirSource struct {
	dir   string
	count int
}

// NewDirSource reads 1.txt..count.txt from dir, or every file named
// <positive integer>.txt when count is 0.
func NewDirSource(dir string, count int) *DirSource {
	return &DirSource{dir: dir, count: count}
}

func (s *DirSource) Load(ctx context.Context) (map[int]string, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	docs := make(map[int]string, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, strconv.Itoa(id)+".txt")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading document %d: %w", id, err)
		}
		docs[id] = string(data)
	}
	if err := checkNotEmpty(docs, "loading "+s.dir); err != nil {
		return nil, err
	}
	slog.Default().With("component", "corpus").Info("corpus loaded", "source", "dir", "dir", s.dir, "documents", len(docs))
	return docs, nil
}

func (s *DirSource) ids() ([]int, error) {
	if s.count > 0 {
		ids := make([]int, s.count)
		for i := range ids {
			ids[i] = i + 1
		}
		return ids, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing corpus dir: %w", err)
	}
	var ids []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), ".txt")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(stem)
		if err != nil || id < 1 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
