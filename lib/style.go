package lib

import (
	"fmt"
	"strconv"
	"strings"
)

type Style int

const (
	StyleNested     Style = iota
	StyleCompact    Style = iota
	StyleCompressed Style = iota
	StyleExpanded   Style = iota
)

func (s Style) String() string {
	switch s {
	case StyleCompact:
		return "compact"
	case StyleCompressed:
		return "compressed"
	case StyleExpanded:
		return "expanded"
	default:
		return "nested"
	}
}

func ParseStyle(raw string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "nested":
		return StyleNested, nil
	case "compact":
		return StyleCompact, nil
	case "compressed":
		return StyleCompressed, nil
	case "expanded":
		return StyleExpanded, nil
	default:
		return StyleNested, &ConfigError{Msg: fmt.Sprintf("unknown style %q", raw)}
	}
}

// styleSetting is shared by every style-setting flag. Each Set overwrites the
// previous value, so the last option on the command line wins.
type styleSetting struct {
	style Style
	set   bool
}

func (s *styleSetting) apply(st Style) {
	s.style = st
	s.set = true
}

// styleFlag is the --style=<name> flag.
type styleFlag struct {
	s *styleSetting
}

func (f styleFlag) String() string {
	if f.s == nil {
		return StyleNested.String()
	}
	return f.s.style.String()
}

func (f styleFlag) Set(v string) error {
	st, err := ParseStyle(v)
	if err != nil {
		return err
	}
	f.s.apply(st)
	return nil
}

func (f styleFlag) Type() string { return "style" }

// styleSwitch is a boolean flag such as --compact. A false value leaves the
// current style alone.
type styleSwitch struct {
	s     *styleSetting
	style Style
}

func (f styleSwitch) String() string { return "false" }

func (f styleSwitch) Set(v string) error {
	on, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	if on {
		f.s.apply(f.style)
	}
	return nil
}

func (f styleSwitch) Type() string { return "bool" }
