package misc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileDumper writes text artifacts (stats, traces) line by line.
type FileDumper struct {
	path string
}

func (this *FileDumper) Init(path string) {
	this.path = path
}

func (this *FileDumper) WriteLines(lines []string) {
	if this.path == "" {
		err := fmt.Errorf("file dumper has no path")
		panic(err)
	}

	if dir := filepath.Dir(this.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}
	}

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	if err := os.WriteFile(this.path, []byte(content), 0o644); err != nil {
		panic(err)
	}
}

// FileLoader reads text artifacts (program listings, data images) as lines.
type FileLoader struct {
	path string
}

func (this *FileLoader) Init(path string) {
	this.path = path
}

func (this *FileLoader) ReadLines() ([]string, error) {
	if this.path == "" {
		return nil, fmt.Errorf("file loader has no path")
	}

	content, err := os.ReadFile(this.path)
	if err != nil {
		return nil, err
	}

	return strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n"), nil
}
