package invoker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/pkg/types"
)

// BuildArgv appends arguments and options to the command's base argv.
//
// Arguments are positional, in descriptor order; arguments the descriptor does
// not declare follow, sorted by name. Options become --name for true,
// --name=value for values, and are omitted when false, null or empty.
func BuildArgv(cmd *catalog.Command, args, opts map[string]any) ([]string, error) {
	argv := append([]string(nil), cmd.Argv...)

	positional, err := positionalArgs(cmd.Arguments, args)
	if err != nil {
		return nil, err
	}
	argv = append(argv, positional...)
	argv = append(argv, optionFlags(cmd.Options, opts)...)
	return argv, nil
}

func positionalArgs(specs []types.ArgumentSpec, args map[string]any) ([]string, error) {
	var out []string
	// Values for optional arguments skipped before a later one that is set.
	var pending []string

	declared := make(map[string]bool, len(specs))
	for _, spec := range specs {
		declared[spec.Name] = true

		values := stringValues(args[spec.Name])
		if len(values) == 0 {
			if spec.Required {
				return nil, types.NewValidationError(spec.Name, "Missing required argument: %s", spec.Name)
			}
			def := ""
			if spec.Default != nil {
				def = *spec.Default
			}
			pending = append(pending, def)
			continue
		}
		out = append(out, pending...)
		pending = pending[:0]
		out = append(out, values...)
	}

	extra := make([]string, 0)
	for name := range args {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, stringValues(args[name])...)
	}
	return out, nil
}

func optionFlags(specs []types.OptionSpec, opts map[string]any) []string {
	normalized := make(map[string]any, len(opts))
	for k, v := range opts {
		normalized[strings.TrimLeft(k, "-")] = v
	}

	var names []string
	seen := make(map[string]bool)
	for _, spec := range specs {
		if _, ok := normalized[spec.Name]; ok {
			names = append(names, spec.Name)
			seen[spec.Name] = true
		}
	}
	var extra []string
	for name := range normalized {
		if !seen[name] && name != "" {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	var out []string
	for _, name := range names {
		switch v := normalized[name].(type) {
		case nil:
		case bool:
			if v {
				out = append(out, "--"+name)
			}
		default:
			for _, s := range stringValues(v) {
				out = append(out, "--"+name+"="+s)
			}
		}
	}
	return out
}

// stringValues flattens a JSON value into command-line strings. Empty
// strings and nulls yield nothing.
func stringValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case bool:
		if t {
			return []string{"1"}
		}
		return []string{"0"}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case int:
		return []string{strconv.Itoa(t)}
	case int64:
		return []string{strconv.FormatInt(t, 10)}
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, stringValues(e)...)
		}
		return out
	case []string:
		var out []string
		for _, e := range t {
			if e != "" {
				out = append(out, e)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}
