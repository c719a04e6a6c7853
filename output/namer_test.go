package output

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func quietNamer(dir string) *Namer {
	return NewNamer(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		input string
		name  string
		ext   string
	}{
		{"Testsett/testsett.xml", "testsett", "xml"},
		{"/tmp/a/b/report.v2.txt", "report.v2", "txt"},
		{"xml_content", "xml_content", "xml"},
		{"plain", "plain", "xml"},
		{"", "", "xml"},
	}

	for _, tt := range tests {
		name, ext := SplitName(tt.input)
		if name != tt.name || ext != tt.ext {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.input, name, ext, tt.name, tt.ext)
		}
	}
}

func TestNextNumbersPerBasename(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Output")
	n := quietNamer(dir)

	steps := []struct {
		input    string
		expected string
	}{
		{"Testsett/testsett.xml", "output_01_testsett.xml"},
		{"Testsett/testsett.xml", "output_02_testsett.xml"},
		{"xml_content", "output_01_xml_content.xml"},
		{"other/testsett.xml", "output_03_testsett.xml"},
	}

	for _, s := range steps {
		if got := n.Next(s.input); got != filepath.Join(dir, s.expected) {
			t.Errorf("Next(%q) = %s, want %s", s.input, got, filepath.Join(dir, s.expected))
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, CounterFile))
	if err != nil {
		t.Fatalf("Expected counter file: %v", err)
	}
	if string(data) != "testsett:3\nxml_content:1\n" {
		t.Errorf("Unexpected counter file %q", data)
	}
}

func TestCounterPersistsAcrossNamers(t *testing.T) {
	dir := t.TempDir()
	quietNamer(dir).Next("a.xml")

	if got := quietNamer(dir).Next("a.xml"); got != filepath.Join(dir, "output_02_a.xml") {
		t.Errorf("Expected counter to continue, got %s", got)
	}
}

func TestMalformedCounterLinesIgnored(t *testing.T) {
	dir := t.TempDir()
	content := "garbage\nb:x\n:4\na:7\n"
	if err := os.WriteFile(filepath.Join(dir, CounterFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	n := quietNamer(dir)
	if got := n.Next("a.xml"); got != filepath.Join(dir, "output_08_a.xml") {
		t.Errorf("Unexpected name %s", got)
	}
	if got := n.Next("b.xml"); got != filepath.Join(dir, "output_01_b.xml") {
		t.Errorf("Unexpected name %s", got)
	}
}

func TestInMemoryFallback(t *testing.T) {
	// A regular file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "Output")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := quietNamer(blocker)
	first := n.Next("a.xml")
	second := n.Next("a.xml")

	if first != filepath.Join(blocker, "output_01_a.xml") || second != filepath.Join(blocker, "output_02_a.xml") {
		t.Errorf("Unexpected fallback names %s, %s", first, second)
	}
}

func TestConcurrentNextIsUnique(t *testing.T) {
	n := quietNamer(t.TempDir())

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := n.Next("same.xml")
			mu.Lock()
			defer mu.Unlock()
			if seen[name] {
				t.Errorf("Duplicate name %s", name)
			}
			seen[name] = true
		}()
	}
	wg.Wait()
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "Output")
	n := quietNamer(dir)
	path := n.Next("doc.xml")

	if err := n.Write(path, "<XML-File/>"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "<XML-File/>" {
		t.Errorf("Unexpected content %q", data)
	}
}
