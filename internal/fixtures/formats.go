package fixtures

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/confsched/pkg/types"
)

// maxLine bounds a single JSONL record. Announcement activity payloads can
// be large.
const maxLine = 4 << 20

type format struct {
	ext  string
	read func(path string) ([]types.Values, int, error)
}

var formats = []format{
	{".jsonl", readJSONL},
	{".yaml", readYAML},
	{".yml", readYAML},
	{".toml", readTOML},
}

// readJSONL returns each parseable object line of path. Blank lines are
// ignored; malformed ones are counted and skipped.
func readJSONL(path string) ([]types.Values, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		records []types.Values
		skipped int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil || rec == nil {
			skipped++
			continue
		}
		records = append(records, types.Values(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, skipped, nil
}

func readYAML(path string) ([]types.Values, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return toValues(raw), 0, nil
}

type tomlFile struct {
	Records []map[string]any `toml:"records"`
}

func readTOML(path string) ([]types.Values, int, error) {
	var doc tomlFile
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return toValues(doc.Records), 0, nil
}

func toValues(raw []map[string]any) []types.Values {
	out := make([]types.Values, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		out = append(out, types.Values(m))
	}
	return out
}

// writeJSONL atomically replaces path with one JSON object per record: the
// records go to a temp file in the same directory, which is synced and then
// renamed over path.
func writeJSONL(path string, records []map[string]any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
