package suitefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"smarttest/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newSuite(t *testing.T) (string, Suite) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "shop")
	write(t, filepath.Join(dir, ConfigFile), "suite_info:\n  name: Shop\n")
	write(t, filepath.Join(dir, PagesDir, "home.yaml"), `
path: /
elements:
  search_box:
    description: search input
    locator: {by: name, value: search}
`)
	write(t, filepath.Join(dir, TestsDir, "test_b.yaml"), `
page: home
tests:
  - name: test_search
    markers: [smoke]
    steps:
      - action: open
      - action: type
        element: search_box
        text: iPhone
      - action: wait
        duration: 2s
`)
	write(t, filepath.Join(dir, TestsDir, "api", "test_a.yml"), `
tests:
  - steps:
      - action: http_request
        path: /health
        expect_status: 200
`)
	write(t, filepath.Join(dir, TestsDir, "notes.txt"), "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scratch"), 0o755))
	s, err := Find(root, "shop")
	require.NoError(t, err)
	return root, s
}

func TestListAndFind(t *testing.T) {
	root, _ := newSuite(t)

	suites, err := ListSuites(root)
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, "shop", suites[0].Name)

	_, err = Find(root, "missing")
	assert.ErrorIs(t, err, ErrSuiteNotFound)
	_, err = Find(root, "../etc")
	assert.ErrorIs(t, err, ErrSuiteNotFound)
}

func TestLoadPages(t *testing.T) {
	_, s := newSuite(t)

	pages, err := s.LoadPages()
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "home", pages[0].Name)
	assert.Equal(t, entity.ByName, pages[0].Elements["search_box"].Locator.By)
}

func TestDiscoverTests(t *testing.T) {
	_, s := newSuite(t)

	tests, err := s.DiscoverTests()
	require.NoError(t, err)
	require.Len(t, tests, 2)

	assert.Equal(t, "test_a_1", tests[0].Name)
	assert.Equal(t, "tests/api/test_a.yml", tests[0].File)
	assert.Equal(t, 200, tests[0].Steps[0].ExpectStatus)

	assert.Equal(t, "test_search", tests[1].Name)
	assert.Equal(t, "home", tests[1].Page)
	assert.Equal(t, 2*time.Second, tests[1].Steps[2].Duration)
}

func TestDiscoverTests_RejectsUnknownFields(t *testing.T) {
	_, s := newSuite(t)
	write(t, filepath.Join(s.Dir, TestsDir, "test_c.yaml"), "tests:\n  - name: x\n    stepz: []\n")

	_, err := s.DiscoverTests()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_c.yaml")
}

func TestWriteGeneratedRoundTrip(t *testing.T) {
	_, s := newSuite(t)

	path, err := s.WriteGenerated("home", entity.TestFile{
		Page: "home",
		Tests: []entity.TestCase{{
			Name:    "test_generated_search",
			Markers: []string{"generated"},
			Steps:   []entity.Step{{Action: "open", Path: "/"}, {Action: "wait", Duration: time.Second}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "tests", "generated", "test_home_generated.yaml"), path)

	tests, err := s.DiscoverTests()
	require.NoError(t, err)
	require.Len(t, tests, 3)
	assert.Equal(t, "tests/generated/test_home_generated.yaml", tests[1].File)
	assert.Equal(t, time.Second, tests[1].Steps[1].Duration)
}

func TestMissingDirsAreEmpty(t *testing.T) {
	s := Suite{Name: "empty", Dir: t.TempDir()}

	pages, err := s.LoadPages()
	require.NoError(t, err)
	assert.Empty(t, pages)

	tests, err := s.DiscoverTests()
	require.NoError(t, err)
	assert.Empty(t, tests)
}
