// Package cfg loads configuration from flag defaults, YAML files and command
// line flags, in that order of precedence from lowest to highest.
package cfg

import (
	"flag"
	"reflect"

	"github.com/pkg/errors"
)

// Source is a generic configuration source. This function may do whatever is
// required to obtain the configuration. It is passed a pointer to the
// destination, which will be something compatible to `yaml.Unmarshal`. The
// obtained configuration may be written to this object, it may also contain
// data from previous sources.
type Source func(interface{}) error

// Unmarshal merges the values of the various configuration sources and sets them on
// `dst`. The object must be compatible with `yaml.Unmarshal`.
func Unmarshal(dst interface{}, sources ...Source) error {
	if len(sources) == 0 {
		panic("No sources supplied to cfg.Unmarshal(). This is most likely a programming issue and should never happen. Check the code!")
	}
	for _, source := range sources {
		if err := source(dst); err != nil {
			return errors.Wrap(err, "sourcing")
		}
	}
	return nil
}

// Parse is a higher level wrapper for Unmarshal that registers the flags of
// dst on fs, applies the YAML file at path when path is not empty, and then
// parses args.
func Parse(dst interface{}, fs *flag.FlagSet, path string, args []string) error {
	if v := reflect.ValueOf(dst); v.Kind() != reflect.Ptr {
		panic("dst not a pointer")
	}

	sources := []Source{Defaults(fs)}
	if path != "" {
		sources = append(sources, YAML(path, true))
	}
	sources = append(sources, Flags(fs, args))
	return Unmarshal(dst, sources...)
}
