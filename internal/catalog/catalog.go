package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"

	"github.com/LaravelPlus/commander/internal/filter"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Input carries the arguments and options of one invocation.
type Input struct {
	Arguments map[string]any
	Options   map[string]any
}

// Handler runs a command in-process. It writes combined output to out and
// returns the exit code.
type Handler func(ctx context.Context, in Input, out io.Writer) (int, error)

// Command is a registered command.
type Command struct {
	types.CommandDescriptor

	// Exactly one of Handler and Argv is set.
	Handler Handler
	Argv    []string

	WorkDir string
	Env     map[string]string
	Timeout time.Duration
}

// Catalog is a name-indexed registry of commands.
type Catalog struct {
	mu       sync.RWMutex
	workDir  string
	config   *types.Config
	policy   filter.Policy
	commands map[string]*Command

	// Commands added with Register survive Reload.
	registered map[string]*Command
}

// New creates a catalog and loads builtin, config and file commands.
func New(workDir string, config *types.Config) *Catalog {
	c := &Catalog{
		workDir:    workDir,
		config:     config,
		policy:     filter.NewPolicy(config),
		registered: make(map[string]*Command),
	}
	c.Reload()
	return c
}

// Register adds or replaces a command.
func (c *Catalog) Register(cmd *Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepare(cmd)
	c.registered[cmd.Name] = cmd
	c.commands[cmd.Name] = cmd
}

// Reload rebuilds the registry from config and command files.
func (c *Catalog) Reload() {
	commands := make(map[string]*Command)
	for _, cmd := range c.builtins() {
		commands[cmd.Name] = cmd
	}
	c.loadFromConfig(commands)
	c.loadFromFiles(commands)

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, cmd := range c.registered {
		commands[name] = cmd
	}
	for _, cmd := range commands {
		c.prepare(cmd)
	}
	c.commands = commands
}

// prepare derives the policy flags and argument requirements.
func (c *Catalog) prepare(cmd *Command) {
	cmd.Disabled = c.policy.IsDisabled(cmd.Name)
	cmd.Excluded = c.policy.IsExcluded(cmd.Name)
	for i := range cmd.Arguments {
		cmd.Arguments[i].Required = cmd.Arguments[i].Default == nil
	}
	if cmd.Arguments == nil {
		cmd.Arguments = []types.ArgumentSpec{}
	}
	if cmd.Options == nil {
		cmd.Options = []types.OptionSpec{}
	}
}

// loadFromConfig loads commands from the config file.
func (c *Catalog) loadFromConfig(into map[string]*Command) {
	if c.config == nil {
		return
	}
	for name, cfg := range c.config.Commands {
		cmd, err := c.fromConfig(name, cfg, types.SourceConfig)
		if err != nil {
			logging.Warn().Err(err).Str("command", name).Msg("skipping invalid command")
			continue
		}
		into[name] = cmd
	}
}

// loadFromFiles loads YAML command definitions from the command directories.
func (c *Catalog) loadFromFiles(into map[string]*Command) {
	for _, dir := range c.commandDirs() {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{yaml,yml}")
		if err != nil {
			logging.Warn().Err(err).Str("dir", dir).Msg("cannot scan command directory")
			continue
		}
		sort.Strings(matches)
		for _, rel := range matches {
			name := NameFromPath(rel)
			cmd, err := c.loadFile(filepath.Join(dir, filepath.FromSlash(rel)), name)
			if err != nil {
				logging.Warn().Err(err).Str("file", rel).Msg("skipping invalid command file")
				continue
			}
			into[name] = cmd
		}
	}
}

func (c *Catalog) loadFile(file, name string) (*Command, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var cfg types.CommandConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return c.fromConfig(name, cfg, types.SourceFile)
}

// NameFromPath converts a slash-separated path relative to a command
// directory into a command name.
func NameFromPath(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return strings.ReplaceAll(rel, "/", ":")
}

func (c *Catalog) fromConfig(name string, cfg types.CommandConfig, source string) (*Command, error) {
	argv := cfg.Argv
	if len(argv) == 0 {
		if cfg.Run == "" {
			return nil, fmt.Errorf("run or argv is required")
		}
		fields, err := shell.Fields(cfg.Run, os.Getenv)
		if err != nil {
			return nil, fmt.Errorf("parse run: %w", err)
		}
		argv = fields
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line")
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = c.workDir
	} else if !filepath.IsAbs(workDir) {
		workDir = filepath.Join(c.workDir, workDir)
	}

	return &Command{
		CommandDescriptor: types.CommandDescriptor{
			Name:        name,
			Description: cfg.Description,
			Help:        cfg.Help,
			Arguments:   append([]types.ArgumentSpec(nil), cfg.Arguments...),
			Options:     append([]types.OptionSpec(nil), cfg.Options...),
			DevOnly:     cfg.DevOnly,
			Source:      source,
		},
		Argv:    argv,
		WorkDir: workDir,
		Env:     cfg.Env,
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}, nil
}

func (c *Catalog) commandDirs() []string {
	if c.config == nil {
		return nil
	}
	dirs := make([]string, 0, len(c.config.CommandDirs))
	for _, dir := range c.config.CommandDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.workDir, dir)
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// List returns the visible commands sorted by name.
func (c *Catalog) List() []types.CommandDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.CommandDescriptor, 0, len(c.commands))
	for name, cmd := range c.commands {
		if c.policy.Hidden(name) {
			continue
		}
		out = append(out, cmd.CommandDescriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of visible commands.
func (c *Catalog) Count() int {
	return len(c.List())
}

// Get returns a visible command by name.
func (c *Catalog) Get(name string) (*Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.policy.Hidden(name) {
		return nil, false
	}
	cmd, ok := c.commands[name]
	return cmd, ok
}

// Lookup returns a command for execution. Unlike Get it resolves ignored
// commands, which are unlisted but still runnable.
func (c *Catalog) Lookup(name string) (*Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.policy.Unrunnable(name) {
		return nil, false
	}
	cmd, ok := c.commands[name]
	return cmd, ok
}

// Descriptor returns the metadata of a visible command.
func (c *Catalog) Descriptor(name string) (types.CommandDescriptor, bool) {
	cmd, ok := c.Get(name)
	if !ok {
		return types.CommandDescriptor{}, false
	}
	return cmd.CommandDescriptor, true
}

// Search returns visible commands whose name or description contains query,
// ignoring case.
func (c *Catalog) Search(query string) []types.CommandDescriptor {
	all := c.List()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	out := make([]types.CommandDescriptor, 0)
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Description), q) {
			out = append(out, d)
		}
	}
	return out
}

// CategoryOf returns the namespace of a command name.
func CategoryOf(name string) string {
	if i := strings.Index(name, ":"); i > 0 {
		return name[:i]
	}
	return types.DefaultCategory
}

// Categories returns the distinct namespaces of visible commands, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, d := range c.List() {
		cat := CategoryOf(d.Name)
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}

// ByCategory returns visible commands in the given namespace.
func (c *Catalog) ByCategory(category string) []types.CommandDescriptor {
	out := make([]types.CommandDescriptor, 0)
	for _, d := range c.List() {
		if CategoryOf(d.Name) == category {
			out = append(out, d)
		}
	}
	return out
}

// Suggest returns up to three visible names close to name.
func (c *Catalog) Suggest(name string) []string {
	type candidate struct {
		name string
		dist int
	}

	maxDist := len(name) / 3
	if maxDist < 2 {
		maxDist = 2
	}

	var candidates []candidate
	for _, d := range c.List() {
		dist := levenshtein.ComputeDistance(name, d.Name)
		if dist <= maxDist || (name != "" && strings.HasPrefix(d.Name, name)) {
			candidates = append(candidates, candidate{d.Name, dist})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	out := make([]string, 0, 3)
	for i := 0; i < len(candidates) && i < 3; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}
