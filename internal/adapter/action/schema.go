package action

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"smarttest/internal/domain/entity"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaResource is the name each compiled document is registered under.
// Every compile uses a fresh compiler, so the name never collides.
const schemaResource = "expect_schema.json"

var errNotJSON = errors.New("response body is not JSON")

// schemaStore compiles expect_schema values and caches the result. A string
// is a JSON Schema file relative to dir; a mapping is an inline schema.
type schemaStore struct {
	dir string

	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

func newSchemaStore(dir string) *schemaStore {
	return &schemaStore{dir: dir, cache: make(map[string]*jsonschema.Schema)}
}

func (s *schemaStore) load(spec any) (*jsonschema.Schema, string, error) {
	var (
		key   string
		label string
		raw   []byte
	)
	switch v := spec.(type) {
	case string:
		if v == "" {
			return nil, "", fmt.Errorf("%w: expect_schema is empty", entity.ErrInvalidStep)
		}
		path := v
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		key, label = "file:"+path, v
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("%w: expect_schema: %w", entity.ErrInvalidStep, err)
		}
		key, label, raw = "inline:"+string(data), "inline schema", data
	default:
		return nil, "", fmt.Errorf("%w: expect_schema must be a file path or a mapping, got %T", entity.ErrInvalidStep, spec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sch, ok := s.cache[key]; ok {
		return sch, label, nil
	}

	if raw == nil {
		data, err := os.ReadFile(key[len("file:"):])
		if err != nil {
			return nil, "", fmt.Errorf("%w: expect_schema: %w", entity.ErrInvalidStep, err)
		}
		raw = data
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: expect_schema %s: %w", entity.ErrInvalidStep, label, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, "", fmt.Errorf("%w: expect_schema %s: %w", entity.ErrInvalidStep, label, err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return nil, "", fmt.Errorf("%w: expect_schema %s: %w", entity.ErrInvalidStep, label, err)
	}
	s.cache[key] = sch
	return sch, label, nil
}

// check validates a response body against spec. Schema problems are
// ErrInvalidStep; a body that does not conform is an assertion failure.
func (s *schemaStore) check(spec any, body []byte) error {
	sch, label, err := s.load(spec)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w: %w", entity.ErrAssertion, errNotJSON, err)
	}
	if err := sch.Validate(inst); err != nil {
		return assertionf("response does not match %s: %v", label, err)
	}
	return nil
}
