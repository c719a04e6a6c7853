// Package output names output documents with a per-input running number
// kept in a counter file next to them
package output

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// CounterFile is the name of the counter file inside the output directory
const CounterFile = ".output_counter"

// Namer hands out output file names. It is safe for concurrent use within
// one process.
type Namer struct {
	dir    string
	mu     sync.Mutex
	memory map[string]int
	logger *slog.Logger
}

// NewNamer creates a Namer writing below dir
func NewNamer(dir string, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{dir: dir, memory: make(map[string]int), logger: logger}
}

// Dir returns the output directory
func (n *Namer) Dir() string {
	return n.dir
}

// SplitName returns the base name of input without directories and its
// extension, which defaults to xml
func SplitName(input string) (name, ext string) {
	base := input
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[:i], base[i+1:]
	}
	return base, "xml"
}

// Next returns the path for the next output of input, such as
// Output/output_03_testsett.xml
func (n *Namer) Next(input string) string {
	name, ext := SplitName(input)
	number := n.nextNumber(name)
	return filepath.Join(n.dir, fmt.Sprintf("output_%02d_%s.%s", number, name, ext))
}

// Write stores content at path, creating the output directory
func (n *Namer) Write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (n *Namer) nextNumber(name string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	number, err := n.bump(name)
	if err != nil {
		n.memory[name]++
		n.logger.Warn("Could not update output counter, using in-memory counter",
			"name", name, "number", n.memory[name], "error", err)
		return n.memory[name]
	}
	return number
}

// bump increments the persisted counter of name and returns the new value
func (n *Namer) bump(name string) (int, error) {
	if err := os.MkdirAll(n.dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(n.dir, CounterFile)
	counts, err := readCounts(path)
	if err != nil {
		return 0, err
	}

	counts[name]++
	if err := writeCounts(path, counts); err != nil {
		return 0, err
	}
	return counts[name], nil
}

// readCounts parses name:N lines. Malformed lines are skipped.
func readCounts(path string) (map[string]int, error) {
	counts := make(map[string]int)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return counts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read counter file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		i := strings.LastIndex(line, ":")
		if i <= 0 {
			continue
		}
		number, err := strconv.Atoi(line[i+1:])
		if err != nil || number < 0 {
			continue
		}
		counts[line[:i]] = number
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan counter file: %w", err)
	}

	return counts, nil
}

// writeCounts replaces the counter file through a temporary file
func writeCounts(path string, counts map[string]int) error {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s:%d\n", name, counts[name])
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), CounterFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary counter file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write counter file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close counter file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace counter file: %w", err)
	}
	return nil
}
