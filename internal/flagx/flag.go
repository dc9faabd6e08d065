// Package flagx lets independent components parse their own subset of the
// command line without tripping over flags that belong to someone else.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of the flags listed in
// allowed, together with their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c tubekeeper.json
//  2. Flag and value combined with '=':      --config=tubekeeper.json
//
// A token that starts with "-" is never consumed as a value.
//
// Parameters:
//
//	args    the command-line arguments (usually os.Args[1:])
//	allowed flag names to keep (e.g. []string{"-c", "--config"})
//
// Returns:
//
//	A non-nil slice with the allowed flags in their original order.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := known[name]; keep {
				out = append(out, arg)
			}
			continue
		}

		if _, keep := known[arg]; !keep {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigFile returns the path given with -c or -config, or "" when neither
// is present. When both appear the last one wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
