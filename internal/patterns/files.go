package patterns

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/punchcall/internal/model"
)

type setFile struct {
	Sets []model.PatternSet `yaml:"sets"`
}

// ExportYAML writes sets as a YAML document.
func ExportYAML(w io.Writer, sets []model.PatternSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(setFile{Sets: sets}); err != nil {
		return fmt.Errorf("failed to encode sets: %w", err)
	}
	return enc.Close()
}

// ReadYAML parses a document written by ExportYAML. Every pattern is validated.
func ReadYAML(r io.Reader) ([]model.PatternSet, error) {
	var doc setFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode sets: %w", err)
	}
	for i, set := range doc.Sets {
		for _, p := range set.Patterns {
			if _, err := model.NewPattern(p...); err != nil {
				return nil, fmt.Errorf("set %q: %w", set.Name, err)
			}
		}
		doc.Sets[i].ID = ""
	}
	return doc.Sets, nil
}

// LoadText reads one pattern per line from path. Blank lines and lines
// starting with '#' are skipped.
func LoadText(path string) ([]model.Pattern, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only pattern list.
			_ = cerr
		}
	}()

	var patterns []model.Pattern
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := model.ParsePattern(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		patterns = append(patterns, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("pattern list is empty")
	}
	return patterns, nil
}
