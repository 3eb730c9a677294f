package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadFile returns every record in a single segment file. Blank lines are
// skipped.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

// SegmentFiles lists the segment files in dir carrying prefix, sorted by name.
func SegmentFiles(dir, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	matches, err := filepath.Glob(filepath.Join(dir, globEscape(prefix)+"_*"+DefaultExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list segment files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadAll concatenates the records of every segment file in dir with the given
// prefix, in filename order.
func ReadAll(dir, prefix string) ([]Record, error) {
	files, err := SegmentFiles(dir, prefix)
	if err != nil {
		return nil, err
	}

	var all []Record
	for _, path := range files {
		records, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
