package extract

import (
	"fmt"
	"regexp"
)

// Field names understood by the extractor. Each maps to one Record field.
const (
	FieldBusinessName = "businessName"
	FieldAddress      = "address"
	FieldSerialNumber = "serialNumber"
	FieldDeviceModel  = "deviceModel"
	FieldGroupCode    = "groupCode"
	FieldNotes        = "notes"
	FieldMerchantID   = "merchantId"
	FieldTerminalID   = "terminalId"
)

// FieldNames lists every field in the order rules are applied.
var FieldNames = []string{
	FieldBusinessName,
	FieldAddress,
	FieldSerialNumber,
	FieldDeviceModel,
	FieldGroupCode,
	FieldNotes,
	FieldMerchantID,
	FieldTerminalID,
}

// Selection picks the captured value out of a match.
type Selection string

const (
	// SelectGroup1 takes capture group 1.
	SelectGroup1 Selection = "group1"
	// SelectFirstNonEmpty takes the first capture group that took part in the
	// match, for patterns written as alternatives.
	SelectFirstNonEmpty Selection = "first_non_empty"
)

// Rule describes how one field is found in the document text.
type Rule struct {
	Name   string
	Expr   *regexp.Regexp
	Select Selection
	Post   []Transform
}

type compiledRule struct {
	Rule
	steps []func(string) string
}

// apply returns the post-processed capture and whether the rule matched.
func (r compiledRule) apply(text string) (string, bool) {
	m := r.Expr.FindStringSubmatchIndex(text)
	if m == nil {
		return "", false
	}

	v, found := "", false
	switch r.Select {
	case SelectFirstNonEmpty:
		for g := 1; 2*g+1 < len(m); g++ {
			if m[2*g] >= 0 {
				v, found = text[m[2*g]:m[2*g+1]], true
				break
			}
		}
	default:
		if len(m) >= 4 && m[2] >= 0 {
			v, found = text[m[2]:m[3]], true
		}
	}
	if !found {
		return "", false
	}

	for _, step := range r.steps {
		v = step(v)
	}
	return v, true
}

// PatternSet is an immutable, validated set of rules keyed by field name.
// It is safe for concurrent use.
type PatternSet struct {
	rules  []compiledRule
	byName map[string]int
}

// NewPatternSet validates rules and builds a set. Rule names must be known
// field names and must not repeat.
func NewPatternSet(rules ...Rule) (*PatternSet, error) {
	ps := &PatternSet{byName: make(map[string]int, len(rules))}
	for _, r := range rules {
		if _, ok := setters[r.Name]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidPattern, r.Name)
		}
		if _, dup := ps.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate rule for %q", ErrInvalidPattern, r.Name)
		}
		if r.Expr == nil {
			return nil, fmt.Errorf("%w: rule %q has no expression", ErrInvalidPattern, r.Name)
		}
		if r.Select == "" {
			r.Select = SelectGroup1
		}
		if r.Select != SelectGroup1 && r.Select != SelectFirstNonEmpty {
			return nil, fmt.Errorf("%w: rule %q has unknown selection %q", ErrInvalidPattern, r.Name, r.Select)
		}
		if r.Expr.NumSubexp() < 1 {
			return nil, fmt.Errorf("%w: rule %q has no capture group", ErrInvalidPattern, r.Name)
		}

		cr := compiledRule{Rule: r}
		cr.Post = append([]Transform(nil), r.Post...)
		for _, t := range cr.Post {
			fn, ok := transforms[t]
			if !ok {
				return nil, fmt.Errorf("%w: rule %q has unknown transform %q", ErrInvalidPattern, r.Name, t)
			}
			cr.steps = append(cr.steps, fn)
		}
		ps.byName[r.Name] = len(ps.rules)
		ps.rules = append(ps.rules, cr)
	}
	return ps, nil
}

// Rule returns the rule for a field name.
func (p *PatternSet) Rule(name string) (Rule, bool) {
	i, ok := p.byName[name]
	if !ok {
		return Rule{}, false
	}
	r := p.rules[i].Rule
	r.Post = append([]Transform(nil), r.Post...)
	return r, true
}

// Names returns the field names covered by the set, in insertion order.
func (p *PatternSet) Names() []string {
	out := make([]string, 0, len(p.rules))
	for _, r := range p.rules {
		out = append(out, r.Name)
	}
	return out
}

func (p *PatternSet) compiled(name string) (compiledRule, bool) {
	i, ok := p.byName[name]
	if !ok {
		return compiledRule{}, false
	}
	return p.rules[i], true
}

// DefaultRules returns the built-in rules for the Vietnamese POS
// registration form.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: FieldBusinessName,
			Expr: regexp.MustCompile(`Tên kinh doanh \(.*\):\s*(.+)`),
			Post: []Transform{Trim},
		},
		{
			Name: FieldAddress,
			Expr: regexp.MustCompile(`Địa chỉ lắp máy:\s*(.+)`),
			Post: []Transform{Trim},
		},
		{
			Name: FieldSerialNumber,
			Expr: regexp.MustCompile(`Số S/N của máy EDC:\s*(\S+)`),
			Post: []Transform{Trim},
		},
		{
			Name: FieldDeviceModel,
			Expr: regexp.MustCompile(`Loại máy:\s*(.+)`),
			Post: []Transform{Trim, TruncateAtSymbol},
		},
		{
			Name:   FieldGroupCode,
			Expr:   regexp.MustCompile(`Tên pháp lý \(Theo giấy phép kinh doanh\):(?:.*-\s*(\S+)|\s*(.+))`),
			Select: SelectFirstNonEmpty,
			Post:   []Transform{Trim},
		},
		{
			// Lazy body ends at the first line starting with "Ngày" or at end of text.
			Name: FieldNotes,
			Expr: regexp.MustCompile(`(?s)Ghi chú:\s*(.+?)(?:\nNgày|$)`),
			Post: []Transform{Trim, NotesSentinel},
		},
		{
			Name: FieldMerchantID,
			Expr: regexp.MustCompile(`MID\s+VND\s+([\d\s]+)`),
			Post: []Transform{StripWhitespace},
		},
		{
			Name: FieldTerminalID,
			Expr: regexp.MustCompile(`TID\s+VND\s+([\d\s]+)`),
			Post: []Transform{StripWhitespace},
		},
	}
}

// DefaultPatternSet returns the built-in set.
func DefaultPatternSet() *PatternSet {
	ps, err := NewPatternSet(DefaultRules()...)
	if err != nil {
		panic(err)
	}
	return ps
}
