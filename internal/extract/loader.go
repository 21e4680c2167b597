package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type patternFile struct {
	Rules []patternFileRule `json:"rules"`
}

type patternFileRule struct {
	Name    string      `json:"name"`
	Pattern string      `json:"pattern"`
	Select  Selection   `json:"select,omitempty"`
	Post    []Transform `json:"post,omitempty"`
}

// patternFileSchema describes the pattern file accepted by LoadPatternSet.
func patternFileSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"rules"},
		"properties": map[string]any{
			"rules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "pattern"},
					"properties": map[string]any{
						"name":    map[string]any{"type": "string", "enum": FieldNames},
						"pattern": map[string]any{"type": "string", "minLength": 1},
						"select": map[string]any{
							"type": "string",
							"enum": []string{string(SelectGroup1), string(SelectFirstNonEmpty)},
						},
						"post": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string", "enum": TransformNames()},
						},
					},
				},
			},
		},
	}
}

// LoadPatternSet reads a JSON pattern file. Rules in the file replace the
// built-in rule of the same name; omitted select and post values are taken
// from that built-in rule. Fields not listed keep their built-in rule.
func LoadPatternSet(path string) (*PatternSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}
	return ParsePatternSet(data)
}

// ParsePatternSet is LoadPatternSet for in-memory data.
func ParsePatternSet(data []byte) (*PatternSet, error) {
	if err := validatePatternFile(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	var pf patternFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	rules := DefaultRules()
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.Name] = i
	}

	seen := make(map[string]bool, len(pf.Rules))
	for _, fr := range pf.Rules {
		if seen[fr.Name] {
			return nil, fmt.Errorf("%w: duplicate rule for %q", ErrInvalidPattern, fr.Name)
		}
		seen[fr.Name] = true

		expr, err := regexp.Compile(fr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidPattern, fr.Name, err)
		}
		r := rules[index[fr.Name]]
		r.Expr = expr
		if fr.Select != "" {
			r.Select = fr.Select
		}
		if fr.Post != nil {
			r.Post = fr.Post
		}
		rules[index[fr.Name]] = r
	}

	return NewPatternSet(rules...)
}

func validatePatternFile(data []byte) error {
	b, err := json.Marshal(patternFileSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("patterns.schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("patterns.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal pattern file: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("pattern file does not match schema: %w", err)
	}
	return nil
}
