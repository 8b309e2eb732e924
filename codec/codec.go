// Package codec writes query results as JSON for the CLI.
package codec

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Codec writes a value as one indented JSON document followed by a newline.
// Implementations must be safe for concurrent use.
type Codec interface {
	Name() string
	Encode(w io.Writer, v any) error
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

var builtin = map[string]Codec{
	JSON{}.Name():   JSON{},
	GoJSON{}.Name(): GoJSON{},
}

// Names returns the names of the built-in codecs, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(builtin))
}

// ByName returns a built-in codec. The empty name selects Default.
func ByName(name string) (Codec, error) {
	if name == "" {
		return Default, nil
	}
	if c, ok := builtin[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown codec %q (want %s)", name, strings.Join(Names(), " or "))
}

// Encode writes v with c, or with Default when c is nil.
func Encode(w io.Writer, c Codec, v any) error {
	if c == nil {
		c = Default
	}
	if err := c.Encode(w, v); err != nil {
		return fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	return nil
}
