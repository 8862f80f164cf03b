package urls

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// FileParser reads article URLs from a local text file, one per line.
// Blank lines and lines starting with # are ignored.
type FileParser struct{}

func NewFileParser() *FileParser {
	return &FileParser{}
}

func (p *FileParser) Fetch(_ context.Context, path string) ([]URL, error) {
	if strings.Contains(path, "://") {
		return nil, fmt.Errorf("%s is not a local file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	var out []URL
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, URL{Location: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoURLs)
	}
	return out, nil
}
