package catalog

import (
	"fmt"
	"strings"
)

// Money is an amount in minor currency units.
type Money struct {
	minor int64
}

func NewMoney(minor int64) (Money, error) {
	if minor < 0 {
		return Money{}, ErrNegativePrice
	}
	return Money{minor: minor}, nil
}

func (m Money) Minor() int64 { return m.minor }

func (m Money) Add(other Money) Money {
	return Money{minor: m.minor + other.minor}
}

func (m Money) Times(qty int) Money {
	return Money{minor: m.minor * int64(qty)}
}

// Option is a product-level option definition, e.g. "size" with {S, M, L}.
type Option struct {
	name   string
	values []string
}

func NewOption(name string, values []string) (Option, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Option{}, ErrEmptyOptionName
	}
	seen := make(map[string]struct{}, len(values))
	vals := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return Option{}, fmt.Errorf("%w: option %q", ErrEmptyOptionValue, name)
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		vals = append(vals, v)
	}
	return Option{name: name, values: vals}, nil
}

func (o Option) Name() string { return o.name }

func (o Option) Values() []string {
	out := make([]string, len(o.values))
	copy(out, o.values)
	return out
}

// Allows reports whether v is permitted. An option without values accepts anything.
func (o Option) Allows(v string) bool {
	if len(o.values) == 0 {
		return true
	}
	for _, allowed := range o.values {
		if allowed == v {
			return true
		}
	}
	return false
}

// ValidateVariantAttributes checks that every attribute key names one of the
// product options and that its value is permitted by that option.
func ValidateVariantAttributes(options []Option, attributes map[string]string) error {
	byName := make(map[string]Option, len(options))
	for _, o := range options {
		byName[o.name] = o
	}
	for key, value := range attributes {
		opt, ok := byName[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAttribute, key)
		}
		if !opt.Allows(value) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidAttributeValue, key, value)
		}
	}
	return nil
}
