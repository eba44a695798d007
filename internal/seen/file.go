package seen

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/moby/sys/atomicwriter"
)

const DefaultFilePath = "seen_sales.txt"

// FileStore keeps one id per line in a plain UTF-8 text file.
type FileStore struct {
	path string
	perm os.FileMode
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultFilePath
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create seen file directory: %w", err)
		}
	}
	return &FileStore{path: path, perm: 0o644}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the whole file. A missing file is an empty set.
func (s *FileStore) Load(ctx context.Context) (mapset.Set[string], error) {
	_ = ctx
	ids := mapset.NewThreadUnsafeSet[string]()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ids, nil
		}
		return nil, fmt.Errorf("read seen file: %w", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ids.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan seen file: %w", err)
	}
	return ids, nil
}

// Save replaces the file atomically: the new contents are written to a
// temporary file in the same directory, synced, then renamed over the old one.
func (s *FileStore) Save(ctx context.Context, ids mapset.Set[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, id := range sortedIDs(ids) {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	if err := atomicwriter.WriteFile(s.path, buf.Bytes(), s.perm); err != nil {
		return fmt.Errorf("write seen file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
