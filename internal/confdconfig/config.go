// Copyright 2026 The confd Authors
// SPDX-License-Identifier: Apache-2.0

package confdconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confd-io/confd/internal/access"
)

// EnvVar is the environment variable naming the config file, checked
// the same way lib/config's BUREAU_CONFIG is: "the only way to load
// configuration without an explicit path... there are no fallbacks".
const EnvVar = "CONFD_CONFIG"

// defaultSocketMode is applied to the listening socket when rpc.umode
// is not set, matching the original daemon's S_IRWXU|S_IRWXG|S_IRWXO
// default.
const defaultSocketMode = 0o777

// Config is confd's resolved daemon configuration.
type Config struct {
	// SocketPath is the Unix domain socket the RPC server listens on.
	SocketPath string
	// SocketMode is the permission bits applied to SocketPath after
	// it is created.
	SocketMode os.FileMode
	// StoragePath is the full path to the SQLite database file.
	StoragePath string
	// Gate is the access policy built from every access.allow entry
	// collected across the root file and its includes.
	Gate *access.Gate
}

// rawFile is the YAML shape of one configuration file. Every field is
// optional except in the root file, where rpc and storage are
// mandatory (checked by the caller, not by this struct, since an
// included file legitimately omits both).
type rawFile struct {
	RPC     *rawRPC      `yaml:"rpc"`
	Storage *rawStorage  `yaml:"storage"`
	Access  *rawAccess   `yaml:"access"`
	Include []rawInclude `yaml:"include"`
}

type rawRPC struct {
	Listen string `yaml:"listen"`
	UMode  *int   `yaml:"umode"`
}

type rawStorage struct {
	Dir string `yaml:"dir"`
	DB  string `yaml:"db"`
}

type rawAccess struct {
	Allow []rawAllow `yaml:"allow"`
}

type rawAllow struct {
	User  identity `yaml:"user"`
	Group identity `yaml:"group"`
	Paths []string `yaml:"paths"`
}

type rawInclude struct {
	Path string `yaml:"path"`
}

// identity holds an access.allow user/group specifier, which the YAML
// file may write as a numeric id or as a name to resolve, mirroring
// Config::ReadAccessAllow's toml::visit over an integer-or-string node.
type identity struct {
	raw string
	set bool
}

func (id *identity) UnmarshalYAML(value *yaml.Node) error {
	id.raw = value.Value
	id.set = value.Value != ""
	return nil
}

// Load reads the config file named by EnvVar.
func Load(logger *slog.Logger) (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; point it at confd's config file, or pass -config", EnvVar)
	}
	return LoadFile(path, logger)
}

// LoadFile reads and resolves the configuration rooted at path,
// following any include directives it contains.
func LoadFile(path string, logger *slog.Logger) (*Config, error) {
	seen := map[string]bool{}

	root, allow, err := readFile(path, logger, seen)
	if err != nil {
		return nil, err
	}
	if root.RPC == nil {
		return nil, fmt.Errorf("%s: missing required %q section", path, "rpc")
	}
	if root.Storage == nil {
		return nil, fmt.Errorf("%s: missing required %q section", path, "storage")
	}

	cfg := &Config{}

	if root.RPC.Listen == "" {
		return nil, fmt.Errorf("%s: rpc.listen must be a non-empty path", path)
	}
	cfg.SocketPath = root.RPC.Listen

	cfg.SocketMode = defaultSocketMode
	if root.RPC.UMode != nil {
		cfg.SocketMode = os.FileMode(*root.RPC.UMode) & 0o777
	}

	if root.Storage.Dir == "" {
		return nil, fmt.Errorf("%s: storage.dir must be set", path)
	}
	if info, statErr := os.Stat(root.Storage.Dir); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: storage.dir %q is not a directory", path, root.Storage.Dir)
	}
	if root.Storage.DB == "" {
		return nil, fmt.Errorf("%s: storage.db must be set", path)
	}
	cfg.StoragePath = filepath.Join(root.Storage.Dir, root.Storage.DB)

	rules, err := resolveRules(allow, logger)
	if err != nil {
		return nil, err
	}
	cfg.Gate = access.New(rules)

	return cfg, nil
}

// readFile parses one file, recursing into its include directives,
// and returns its own rpc/storage sections plus the flattened list of
// every access.allow entry seen across it and its includes (in file
// order, includes processed in the order they are declared).
func readFile(path string, logger *slog.Logger, seen map[string]bool) (*rawFile, []rawAllow, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve path %q: %w", path, err)
	}
	if seen[abs] {
		return nil, nil, fmt.Errorf("include cycle detected: %q is already being read", abs)
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", abs, err)
	}

	var f rawFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse %q: %w", abs, err)
	}

	var allow []rawAllow
	if f.Access != nil {
		allow = append(allow, f.Access.Allow...)
	}

	for _, inc := range f.Include {
		if inc.Path == "" {
			return nil, nil, fmt.Errorf("%q: empty include path", abs)
		}
		incPath := inc.Path
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(filepath.Dir(abs), incPath)
		}

		info, statErr := os.Stat(incPath)
		if statErr != nil {
			return nil, nil, fmt.Errorf("include %q: %w", incPath, statErr)
		}

		if info.IsDir() {
			included, incErr := readIncludeDirectory(incPath, logger, seen)
			if incErr != nil {
				return nil, nil, incErr
			}
			allow = append(allow, included...)
			continue
		}

		_, included, incErr := readFile(incPath, logger, seen)
		if incErr != nil {
			return nil, nil, incErr
		}
		allow = append(allow, included...)
	}

	return &f, allow, nil
}

// readIncludeDirectory reads every *.yaml file in dir, in sorted
// order, the same deterministic-order scan
// Config::ProcessIncludeDirectory performs over *.toml files.
func readIncludeDirectory(dir string, logger *slog.Logger, seen map[string]bool) ([]rawAllow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list include directory %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var allow []rawAllow
	for _, name := range names {
		_, included, err := readFile(filepath.Join(dir, name), logger, seen)
		if err != nil {
			return nil, err
		}
		allow = append(allow, included...)
	}
	return allow, nil
}

// resolveRules converts parsed allow entries into access.Rule values,
// resolving named users/groups via the local account database. A
// failed lookup is logged and leaves the rule with neither identity
// set, so it matches no caller — even when the entry's other identity
// resolved.
func resolveRules(entries []rawAllow, logger *slog.Logger) ([]access.Rule, error) {
	rules := make([]access.Rule, 0, len(entries))
	for i, entry := range entries {
		if !entry.User.set && !entry.Group.set {
			return nil, fmt.Errorf("access.allow[%d]: neither user nor group specified", i)
		}
		if len(entry.Paths) == 0 {
			return nil, fmt.Errorf("access.allow[%d]: paths must not be empty", i)
		}

		rule := access.Rule{Patterns: append([]string(nil), entry.Paths...)}

		resolved := true
		if entry.User.set {
			if uid, ok := resolveUID(entry.User.raw, logger); ok {
				rule.User = &uid
			} else {
				resolved = false
			}
		}
		if entry.Group.set {
			if gid, ok := resolveGID(entry.Group.raw, logger); ok {
				rule.Group = &gid
			} else {
				resolved = false
			}
		}
		if !resolved {
			rule.User, rule.Group = nil, nil
		}

		rules = append(rules, rule)
	}
	return rules, nil
}

func resolveUID(raw string, logger *slog.Logger) (uint32, bool) {
	if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
		return uint32(n), true
	}
	u, err := lookupUser(raw)
	if err != nil {
		logger.Error("failed to resolve user name in access.allow", "name", raw, "error", err)
		return 0, false
	}
	return u, true
}

func resolveGID(raw string, logger *slog.Logger) (uint32, bool) {
	if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
		return uint32(n), true
	}
	g, err := lookupGroup(raw)
	if err != nil {
		logger.Error("failed to resolve group name in access.allow", "name", raw, "error", err)
		return 0, false
	}
	return g, true
}
