package cfg

import (
	"flag"
	"fmt"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
)

// Defaults returns a Source that sets dst to the defaults of its flags. dst
// must implement [flagext.Registerer]. If fs is not nil the flags are
// registered on fs so that a later [Flags] source can parse them; otherwise
// they are registered on a throwaway flag set.
func Defaults(fs *flag.FlagSet) Source {
	return func(dst interface{}) error {
		r, ok := dst.(flagext.Registerer)
		if !ok {
			return fmt.Errorf("%T does not register flags", dst)
		}

		if fs == nil {
			flagext.DefaultValues(r)
			return nil
		}
		r.RegisterFlags(fs)
		return nil
	}
}

// Flags returns a Source that parses args with fs. The flags of dst must have
// been registered on fs by [Defaults]; only flags present in args change dst.
func Flags(fs *flag.FlagSet, args []string) Source {
	return func(interface{}) error {
		return errors.Wrap(fs.Parse(args), "parsing flags")
	}
}
