// Package manifest reads and writes the JSON list of photos a batch is
// restricted to: [{"FileName": "2019/beach.jpg"}, ...].
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

type Entry struct {
	FileName string `json:"FileName"`
}

func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return entries, nil
}

func Load(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func Write(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Clean returns the slash-separated relative form of name, or an error when
// the name is empty or would leave the input root.
func Clean(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty manifest entry")
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("manifest entry %q escapes the input root", name)
	}
	return cleaned, nil
}
