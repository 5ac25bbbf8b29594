package libretro

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/giongto35/retrocore/pkg/logger"
)

var ErrParse = errors.New("bad option value")

// Variable is a core option as announced to the frontend, Value has the
// "Label; choice1|choice2|..." form.
type Variable struct {
	Key   string
	Value string
}

// VariableDef declares one option of a core.
type VariableDef struct {
	Name        string
	Description string
}

// Variables is the option registry of a core. Every key is prefixed with
// the core name, values come from the frontend and fall back to the
// first choice when missing or unparsable.
type Variables struct {
	prefix string
	defs   []VariableDef
	index  map[string]int

	src VariableSource
	log *logger.Logger
}

func NewVariables(prefix string, defs ...VariableDef) *Variables {
	v := &Variables{prefix: prefix, defs: defs, index: make(map[string]int, len(defs)), log: logger.Nop()}
	for i, d := range defs {
		v.index[d.Name] = i
	}
	return v
}

// Attach sets where the values are read from.
func (v *Variables) Attach(src VariableSource, log *logger.Logger) {
	v.src = src
	if log != nil {
		v.log = log
	}
}

func (v *Variables) Prefix() string { return v.prefix }

func (v *Variables) Key(name string) string { return v.prefix + "_" + name }

func (v *Variables) Definitions() []Variable {
	vars := make([]Variable, len(v.defs))
	for i, d := range v.defs {
		vars[i] = Variable{Key: v.Key(d.Name), Value: d.Description}
	}
	return vars
}

// Choices returns the values an option can take, default first.
func (v *Variables) Choices(name string) []string {
	i, ok := v.index[name]
	if !ok {
		return nil
	}
	return choices(v.defs[i].Description)
}

func choices(description string) []string {
	_, list, ok := strings.Cut(description, ";")
	if !ok {
		return nil
	}
	cc := strings.Split(strings.TrimSpace(list), "|")
	for i := range cc {
		cc[i] = strings.TrimSpace(cc[i])
	}
	return cc
}

// Default is the first choice of the option.
func (v *Variables) Default(name string) string {
	if cc := v.Choices(name); len(cc) > 0 {
		return cc[0]
	}
	return ""
}

// Value returns the current raw value of the option.
func (v *Variables) Value(name string) string {
	if _, ok := v.index[name]; !ok {
		v.log.Warn().Msgf("Unknown option %v", name)
		return ""
	}
	if v.src != nil {
		if val, ok := v.src.Variable(v.Key(name)); ok && val != "" {
			return val
		}
	}
	return v.Default(name)
}

func (v *Variables) Bool(name string) bool {
	b, err := ParseBool(v.Value(name))
	if err != nil {
		v.badValue(name, err)
		b, _ = ParseBool(v.Default(name))
	}
	return b
}

func (v *Variables) Uint(name string) uint {
	n, err := ParseNumeric(v.Value(name))
	if err != nil {
		v.badValue(name, err)
		n, _ = ParseNumeric(v.Default(name))
	}
	return n
}

func (v *Variables) Ratio(name string) (uint, uint) {
	a, b, err := ParseRatio(v.Value(name))
	if err != nil {
		v.badValue(name, err)
		a, b, _ = ParseRatio(v.Default(name))
	}
	return a, b
}

func (v *Variables) badValue(name string, err error) {
	v.log.Warn().Err(err).Msgf("Couldn't parse %v, using %q", v.Key(name), v.Default(name))
}

// ParseBool accepts true/enabled/on and false/disabled/off.
func ParseBool(s string) (bool, error) {
	switch s {
	case "true", "enabled", "on":
		return true, nil
	case "false", "disabled", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrParse, s)
}

// ParseNumeric reads the number of labels like "2x" or "dithered 16bpp
// (native)".
func ParseNumeric(s string) (uint, error) {
	n, err := strconv.ParseUint(trimNonDigits(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrParse, s)
	}
	return uint(n), nil
}

// ParseRatio reads labels like "16:9" or "4:3 (original)".
func ParseRatio(s string) (uint, uint, error) {
	a, b, ok := strings.Cut(trimNonDigits(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not a ratio", ErrParse, s)
	}
	x, err := strconv.ParseUint(a, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not a ratio", ErrParse, s)
	}
	y, err := strconv.ParseUint(b, 10, 32)
	if err != nil || y == 0 {
		return 0, 0, fmt.Errorf("%w: %q is not a ratio", ErrParse, s)
	}
	return uint(x), uint(y), nil
}

func trimNonDigits(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
}
