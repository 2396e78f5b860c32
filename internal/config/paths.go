package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ProjectDir is the per-project directory holding commander.json and
// command definition files.
const ProjectDir = ".commander"

// configNames are tried in order in every config directory; later files win.
var configNames = []string{"commander.json", "commander.jsonc"}

// Paths holds the per-user directories commander writes to.
type Paths struct {
	Data   string // execution database (sqlite)
	Config string // global commander.json
	State  string // log files
}

// GetPaths resolves the user directories, honouring the XDG variables.
// On Windows all three live under %APPDATA%.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(xdgHome("XDG_DATA_HOME", ".local", "share"), "commander"),
		Config: filepath.Join(xdgHome("XDG_CONFIG_HOME", ".config"), "commander"),
		State:  filepath.Join(xdgHome("XDG_STATE_HOME", ".local", "state"), "commander"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath is the default sqlite execution database.
func (p *Paths) DatabasePath() string {
	return filepath.Join(p.Data, "commander.db")
}

// LogPath returns the default log file location.
func (p *Paths) LogPath() string {
	return filepath.Join(p.State, "commander.log")
}

// ProjectCommandsDir is where a project keeps its command definition files.
// It is relative when directory is empty.
func ProjectCommandsDir(directory string) string {
	return filepath.Join(directory, ProjectDir, "commands")
}

// ProjectConfigPath is the project config file that takes precedence over
// the one in the project root.
func ProjectConfigPath(directory string) string {
	return filepath.Join(directory, ProjectDir, configNames[0])
}

// configFile is a candidate config file and the directory its relative
// paths and {file:...} references resolve against.
type configFile struct {
	path    string
	baseDir string
}

// configFiles lists the config files Load considers, lowest priority first.
func configFiles(p *Paths, directory string) []configFile {
	dirs := []string{p.Config}
	if directory != "" {
		dirs = append(dirs, directory, filepath.Join(directory, ProjectDir))
	}
	var files []configFile
	for _, dir := range dirs {
		for _, name := range configNames {
			files = append(files, configFile{path: filepath.Join(dir, name), baseDir: dir})
		}
	}
	if path := os.Getenv("COMMANDER_CONFIG"); path != "" {
		files = append(files, configFile{path: path, baseDir: filepath.Dir(path)})
	}
	return files
}

func xdgHome(env string, unixRel ...string) string {
	if value := os.Getenv(env); value != "" {
		return value
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(append([]string{os.Getenv("HOME")}, unixRel...)...)
}
