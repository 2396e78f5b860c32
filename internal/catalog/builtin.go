package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"mvdan.cc/sh/v3/syntax"

	"github.com/LaravelPlus/commander/pkg/types"
)

func strPtr(s string) *string { return &s }

// builtins returns the in-process commands.
func (c *Catalog) builtins() []*Command {
	return []*Command{
		{
			CommandDescriptor: types.CommandDescriptor{
				Name:        "list",
				Description: "List commands",
				Help:        "The list command lists all visible commands, optionally limited to one namespace.",
				Arguments: []types.ArgumentSpec{
					{Name: "namespace", Description: "The namespace name", Default: strPtr("")},
				},
				Options: []types.OptionSpec{
					{Name: "raw", Description: "To output raw command list"},
				},
				Source: types.SourceBuiltin,
			},
			Handler: c.listHandler,
		},
		{
			CommandDescriptor: types.CommandDescriptor{
				Name:        "help",
				Description: "Display help for a command",
				Help:        "The help command displays help for a given command.",
				Arguments: []types.ArgumentSpec{
					{Name: "command_name", Description: "The command name", Default: strPtr("help")},
				},
				Source: types.SourceBuiltin,
			},
			Handler: c.helpHandler,
		},
		{
			CommandDescriptor: types.CommandDescriptor{
				Name:        "about",
				Description: "Display basic information about the commander installation",
				Source:      types.SourceBuiltin,
			},
			Handler: c.aboutHandler,
		},
		{
			CommandDescriptor: types.CommandDescriptor{
				Name:        "env",
				Description: "Display the current environment",
				Source:      types.SourceBuiltin,
			},
			Handler: c.envHandler,
		},
	}
}

func (c *Catalog) listHandler(_ context.Context, in Input, out io.Writer) (int, error) {
	namespace, _ := in.Arguments["namespace"].(string)

	var commands []types.CommandDescriptor
	if namespace != "" {
		commands = c.ByCategory(namespace)
		if len(commands) == 0 {
			return 1, fmt.Errorf("There are no commands defined in the \"%s\" namespace.", namespace)
		}
	} else {
		commands = c.List()
	}

	if truthy(in.Options["raw"]) {
		for _, d := range commands {
			fmt.Fprintf(out, "%-40s %s\n", d.Name, d.Description)
		}
		return 0, nil
	}

	fmt.Fprintln(out, "Available commands:")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	current := ""
	for _, d := range commands {
		if cat := CategoryOf(d.Name); cat != current && cat != types.DefaultCategory {
			current = cat
			fmt.Fprintf(w, " %s\n", cat)
		}
		fmt.Fprintf(w, "  %s\t%s\n", d.Name, d.Description)
	}
	return 0, w.Flush()
}

func (c *Catalog) helpHandler(_ context.Context, in Input, out io.Writer) (int, error) {
	name, _ := in.Arguments["command_name"].(string)
	if name == "" {
		name = "help"
	}
	cmd, ok := c.Lookup(name)
	if !ok {
		return 1, &types.CommandNotFoundError{Name: name, Suggestions: c.Suggest(name)}
	}
	return 0, WriteHelp(out, cmd)
}

// WriteHelp renders the usage text of a command.
func WriteHelp(out io.Writer, cmd *Command) error {
	var usage strings.Builder
	usage.WriteString(cmd.Name)
	if len(cmd.Options) > 0 {
		usage.WriteString(" [options]")
	}
	if len(cmd.Arguments) > 0 {
		usage.WriteString(" [--]")
		for _, a := range cmd.Arguments {
			if a.Required {
				fmt.Fprintf(&usage, " <%s>", a.Name)
			} else {
				fmt.Fprintf(&usage, " [<%s>]", a.Name)
			}
		}
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if cmd.Description != "" {
		fmt.Fprintf(w, "Description:\n  %s\n\n", cmd.Description)
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage.String())

	if len(cmd.Arguments) > 0 {
		fmt.Fprintln(w, "\nArguments:")
		for _, a := range cmd.Arguments {
			desc := a.Description
			if a.Default != nil && *a.Default != "" {
				desc += fmt.Sprintf(" [default: %q]", *a.Default)
			}
			fmt.Fprintf(w, "  %s\t%s\n", a.Name, desc)
		}
	}

	if len(cmd.Options) > 0 {
		fmt.Fprintln(w, "\nOptions:")
		for _, o := range cmd.Options {
			flag := "--" + o.Name
			if o.AcceptsValue {
				flag += "=" + strings.ToUpper(o.Name)
			}
			if o.Shortcut != nil {
				flag = "-" + *o.Shortcut + ", " + flag
			}
			fmt.Fprintf(w, "  %s\t%s\n", flag, o.Description)
		}
	}

	if len(cmd.Argv) > 0 {
		fmt.Fprintf(w, "\nRuns:\n  %s\n", QuoteArgv(cmd.Argv))
	}
	if cmd.Help != "" {
		fmt.Fprintf(w, "\nHelp:\n  %s\n", cmd.Help)
	}
	return w.Flush()
}

// QuoteArgv renders argv as a copy-pasteable shell line.
func QuoteArgv(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", a)
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

func (c *Catalog) aboutHandler(_ context.Context, _ Input, out io.Writer) (int, error) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Commander")
	if c.config != nil {
		fmt.Fprintf(w, "  Environment\t%s\n", c.config.Environment)
		fmt.Fprintf(w, "  Tracking\t%s\n", onOff(c.config.Enabled))
		fmt.Fprintf(w, "  Database\t%s\n", c.config.Database.Driver)
		fmt.Fprintf(w, "  Table\t%s\n", c.config.Table)
		fmt.Fprintf(w, "  Retention\t%d days\n", c.config.RetentionDays)
	}
	fmt.Fprintf(w, "  Commands\t%d\n", c.Count())
	return 0, w.Flush()
}

func (c *Catalog) envHandler(_ context.Context, _ Input, out io.Writer) (int, error) {
	env := "production"
	if c.config != nil && c.config.Environment != "" {
		env = c.config.Environment
	}
	fmt.Fprintf(out, "The application environment is [%s].\n", env)
	return 0, nil
}

func onOff(b bool) string {
	if b {
		return "ENABLED"
	}
	return "OFF"
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}
