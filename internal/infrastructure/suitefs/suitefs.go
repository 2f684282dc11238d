// Package suitefs reads and writes suite directories:
//
//	<suites>/<name>/config.yaml
//	<suites>/<name>/pages/*.yaml
//	<suites>/<name>/tests/**/*.yaml
//	<suites>/<name>/baselines/
package suitefs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"smarttest/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFile   = "config.yaml"
	PagesDir     = "pages"
	TestsDir     = "tests"
	GeneratedDir = "generated"
	BaselinesDir = "baselines"
)

var ErrSuiteNotFound = errors.New("suite not found")

type Suite struct {
	Name string
	Dir  string
}

// ListSuites returns the subdirectories of root holding a config.yaml.
func ListSuites(root string) ([]Suite, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read suites dir: %w", err)
	}
	var suites []Suite
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err == nil {
			suites = append(suites, Suite{Name: e.Name(), Dir: dir})
		}
	}
	return suites, nil
}

func Find(root, name string) (Suite, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Suite{}, fmt.Errorf("%w: invalid name %q", ErrSuiteNotFound, name)
	}
	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Suite{}, fmt.Errorf("%w: %s", ErrSuiteNotFound, dir)
	}
	return Suite{Name: name, Dir: dir}, nil
}

func (s Suite) BaselineDir() string { return filepath.Join(s.Dir, BaselinesDir) }

// LoadPages reads every page object. A page without a name takes its
// file name.
func (s Suite) LoadPages() ([]entity.PageObject, error) {
	files, err := yamlFiles(filepath.Join(s.Dir, PagesDir), false)
	if err != nil {
		return nil, err
	}
	pages := make([]entity.PageObject, 0, len(files))
	for _, path := range files {
		var p entity.PageObject
		if err := decodeFile(path, &p); err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = stem(path)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// DiscoverTests walks tests/ (generated tests included) in lexical order.
// TestCase.File is relative to the suite directory.
func (s Suite) DiscoverTests() ([]entity.TestCase, error) {
	files, err := yamlFiles(filepath.Join(s.Dir, TestsDir), true)
	if err != nil {
		return nil, err
	}
	var tests []entity.TestCase
	for _, path := range files {
		var tf entity.TestFile
		if err := decodeFile(path, &tf); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(s.Dir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		for i, tc := range tf.Tests {
			if tc.Name == "" {
				tc.Name = fmt.Sprintf("%s_%d", stem(path), i+1)
			}
			if tc.Page == "" {
				tc.Page = tf.Page
			}
			tc.File = rel
			tests = append(tests, tc)
		}
	}
	return tests, nil
}

// GeneratedPath is where AI-generated tests for page land.
func (s Suite) GeneratedPath(page string) string {
	return filepath.Join(s.Dir, TestsDir, GeneratedDir, "test_"+page+"_generated.yaml")
}

// WriteGenerated replaces the generated test file of a page.
func (s Suite) WriteGenerated(page string, tf entity.TestFile) (string, error) {
	path := s.GeneratedPath(page)
	var buf bytes.Buffer
	buf.WriteString("# Generated by smarttest. Edits are overwritten on the next generate run.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tf); err != nil {
		return "", fmt.Errorf("encode generated tests: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create generated dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write generated tests: %w", err)
	}
	return path, nil
}

func yamlFiles(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decode(f, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
