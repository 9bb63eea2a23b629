package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ignite/outreach-engine/internal/domain"
)

// JSONL reads candidates from a file with one JSON object per line:
//
//	{"address": "jane@acme.com", "organization": "acme", "attributes": {"role": "Platform Engineer"}}
//
// Blank lines and lines starting with # are skipped. Malformed lines are
// returned as candidates with an empty address so the scheduler can count
// them as invalid rather than silently dropping them.
type JSONL struct {
	f       *os.File
	scanner *bufio.Scanner
}

// OpenJSONL opens a candidate file for one pass.
func OpenJSONL(path string) (*JSONL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidate file: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONL{f: f, scanner: sc}, nil
}

func (j *JSONL) Next(ctx context.Context) (*domain.Candidate, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !j.scanner.Scan() {
			if err := j.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read candidate file: %w", err)
			}
			return nil, nil
		}
		line := strings.TrimSpace(j.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var c domain.Candidate
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			// Surface as an invalid candidate, not a fatal feed error.
			return &domain.Candidate{}, nil
		}
		return &c, nil
	}
}

// Close releases the underlying file.
func (j *JSONL) Close() error {
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

var _ io.Closer = (*JSONL)(nil)
