// Package folder lists, deletes and converts files selected by suffix from a
// directory, optionally descending into subdirectories.
package folder

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List returns the files in dir whose names end with any of suffixes.
//
// With recursive set, the whole tree under dir is walked; otherwise only the
// direct entries of dir are considered. Suffix matching is case-insensitive and
// an empty suffix list matches every file. Results are sorted.
func List(dir string, suffixes []string, recursive bool) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !HasSuffix(e.Name(), suffixes) {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
		sort.Strings(files)
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !HasSuffix(d.Name(), suffixes) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// HasSuffix reports whether name ends with one of suffixes, ignoring case.
func HasSuffix(name string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// Delete removes every path and returns those actually removed. It stops at
// the first failure, returning what was removed so far with the error.
func Delete(paths []string) ([]string, error) {
	removed := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

type notebook struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType       string          `json:"cell_type"`
	Source         json.RawMessage `json:"source"`
	ExecutionCount *int            `json:"execution_count"`
}

// cellSource decodes a cell source, which nbformat allows as either a single
// string or a list of lines.
func cellSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ""), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// NotebookToScript converts a Jupyter notebook into a Python script next to it
// (same base name, .py extension) and returns the script path.
//
// Code cells follow "# In[n]:" markers the way nbconvert's script exporter
// writes them; markdown cells become "#" comment blocks; raw cells are dropped.
func NotebookToScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read notebook: %w", err)
	}

	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", fmt.Errorf("failed to parse notebook: %w", err)
	}

	var b strings.Builder
	b.WriteString("#!/usr/bin/env python\n# coding: utf-8\n\n")

	for i, cell := range nb.Cells {
		src, err := cellSource(cell.Source)
		if err != nil {
			return "", fmt.Errorf("cell %d: invalid source: %w", i, err)
		}

		switch cell.CellType {
		case "code":
			count := " "
			if cell.ExecutionCount != nil {
				count = fmt.Sprint(*cell.ExecutionCount)
			}
			fmt.Fprintf(&b, "# In[%s]:\n\n\n", count)
			b.WriteString(src)
			b.WriteString("\n\n\n")
		case "markdown":
			for _, line := range strings.Split(src, "\n") {
				if line == "" {
					b.WriteString("#\n")
					continue
				}
				b.WriteString("# " + line + "\n")
			}
			b.WriteString("\n")
		}
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".py"
	if err := os.WriteFile(out, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	return out, nil
}
