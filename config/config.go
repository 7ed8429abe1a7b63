package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/rcowham/svndumpfilter2/pathmatch"
)

// Options holds one run's fully-resolved settings: the union of
// command-line flags and any defaults file, after validation.
type Options struct {
	InputPath  string // "" means read stdin
	OutputPath string // "" means write stdout

	Mode  pathmatch.Mode
	Paths []string

	RepoPath string // repository path for the production Probe; "" disables untangling

	PreserveEmpty   bool
	StopRenumbering bool
	StripMergeinfo  bool
	SniffMimeType   bool

	Scan          bool
	StartRevision int

	Debug int
}

// Defaults holds the subset of Options that may be preset via a YAML
// defaults file and overridden by explicit flags.
type Defaults struct {
	StripMergeinfo bool `yaml:"strip_mergeinfo"`
	SniffMimeType  bool `yaml:"sniff_mime_type"`
	Debug          int  `yaml:"debug"`
}

// UnmarshalDefaults parses a YAML defaults document.
func UnmarshalDefaults(content []byte) (*Defaults, error) {
	d := &Defaults{}
	if err := yaml.Unmarshal(content, d); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v. make sure to use 'single quotes' around strings with special characters", err.Error())
	}
	return d, nil
}

// LoadDefaultsFile loads and parses a YAML defaults file.
func LoadDefaultsFile(filename string) (*Defaults, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	d, err := UnmarshalDefaults(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	return d, nil
}

// ApplyDefaults fills fields of o left at their zero value from d,
// letting explicit flags parsed before this call take precedence.
func (o *Options) ApplyDefaults(d *Defaults) {
	if !o.StripMergeinfo {
		o.StripMergeinfo = d.StripMergeinfo
	}
	if !o.SniffMimeType {
		o.SniffMimeType = d.SniffMimeType
	}
	if o.Debug == 0 {
		o.Debug = d.Debug
	}
}

// LoadPathsFile reads one path per line from filename, ignoring blank
// lines and lines starting with '#'.
func LoadPathsFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %v", filename, err.Error())
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %v: %v", filename, err.Error())
	}
	return paths, nil
}

// Validate checks o for internal consistency, returning a *ConfigError
// describing the first problem found.
func (o *Options) Validate() error {
	if len(o.Paths) == 0 {
		return &ConfigError{Msg: "at least one include or exclude path is required"}
	}
	if o.StopRenumbering && o.PreserveEmpty {
		return &ConfigError{Msg: "stop-renumbering already implies every revision is kept; preserve-empty is redundant with it"}
	}
	if o.RepoPath == "" && !o.Scan {
		return &ConfigError{Msg: "a repository path is required to resolve copy sources that fall outside the selected paths (pass --scan to skip this check)"}
	}
	if o.StartRevision < 0 {
		return &ConfigError{Msg: "start-revision cannot be negative"}
	}
	return nil
}
