package cmd

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/ssargent/docport/pkg/codec"
)

// formatValue is a pflag.Value that only accepts registered format names.
type formatValue codec.Format

var _ pflag.Value = (*formatValue)(nil)

func newFormatValue(def codec.Format, p *codec.Format) *formatValue {
	*p = def
	return (*formatValue)(p)
}

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Set(s string) error {
	format, err := codec.ParseFormat(s)
	if err != nil {
		return err
	}
	*f = formatValue(format)
	return nil
}

func (f *formatValue) Type() string { return "format" }

// formatFlag registers a --format flag on fs bound to p.
func formatFlag(fs *pflag.FlagSet, p *codec.Format, usage string) {
	fs.VarP(newFormatValue("", p), "format", "f", usage)
}

// indent prefixes every line of s with two spaces for help text.
func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
