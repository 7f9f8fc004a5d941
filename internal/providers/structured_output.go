package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxStructuredRepairAttempts limits how many times a model is asked to fix
// output that failed parsing or validation.
const maxStructuredRepairAttempts = 2

// maxRepairEcho caps how much of a bad answer is quoted back to the model.
const maxRepairEcho = 12000

var errNoJSONObject = errors.New("no JSON object in model output")

// structuredContract is a named JSON schema that model output must satisfy.
// The schema is compiled on first use.
type structuredContract struct {
	name string
	raw  json.RawMessage

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

func newStructuredContract(name string, raw json.RawMessage) *structuredContract {
	return &structuredContract{name: name, raw: raw}
}

// Object returns the schema as a generic map for SDK response-format params.
func (c *structuredContract) Object() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(c.raw, &m); err != nil {
		return nil, fmt.Errorf("invalid %s schema: %w", c.name, err)
	}
	return m, nil
}

func (c *structuredContract) schema() (*jsonschema.Schema, error) {
	c.once.Do(func() {
		url := c.name + ".json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(c.raw)); err != nil {
			c.err = fmt.Errorf("failed to load %s schema: %w", c.name, err)
			return
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			c.err = fmt.Errorf("failed to compile %s schema: %w", c.name, err)
			return
		}
		c.compiled = compiled
	})
	return c.compiled, c.err
}

// Decode pulls the JSON object out of content, validates it and
// unmarshals it into v.
func (c *structuredContract) Decode(content string, v any) error {
	obj, err := findJSONObject(content)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(obj, &doc); err != nil {
		return fmt.Errorf("malformed %s JSON: %w", c.name, err)
	}
	s, err := c.schema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s does not match schema: %w", c.name, err)
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", c.name, err)
	}
	return nil
}

// RepairPrompt asks the model to answer again with only conforming JSON.
func (c *structuredContract) RepairPrompt(lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > maxRepairEcho {
		lastOutput = lastOutput[:maxRepairEcho] + "\n...[truncated]"
	}
	return fmt.Sprintf(`That %s could not be used: %v

Reply again with ONLY the JSON object, no markdown and no commentary, matching this schema exactly:
%s

Your previous reply was:
%s`, c.name, issue, c.raw, lastOutput)
}

// findJSONObject returns the first balanced top-level JSON object in content.
// Code fences and surrounding prose are skipped; braces inside strings are
// ignored.
func findJSONObject(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty model output")
	}

	start := strings.IndexByte(content, '{')
	for start >= 0 {
		if end := matchBrace(content[start:]); end > 0 {
			candidate := content[start : start+end]
			if json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), nil
			}
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, errNoJSONObject
}

// matchBrace returns the length of the object opening at s[0], or 0 when
// it never closes.
func matchBrace(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
