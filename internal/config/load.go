package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nibzard/todo-go/internal/utils"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.todo/todo.toml or OS-specific config dir)
// 3. Project config file (todo.toml or .todo.toml in current directory)
// 4. Environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return loadFrom(fs, args, findUserConfigFile(), findProjectConfigFile(wd))
}

func loadFrom(fs *flag.FlagSet, args []string, userFile, projectFile string) (*ConfigWithSources, error) {
	cfg := &Config{}
	sources := make(map[string]ConfigSource)
	var files []string

	// 1. Set defaults
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2. User config file
	if userFile != "" {
		if err := loadConfigFile(cfg, userFile, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userFile, err)
		}
		files = append(files, userFile)
	}

	// 3. Project config file (overrides user config)
	if projectFile != "" {
		if err := loadConfigFile(cfg, projectFile, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectFile, err)
		}
		files = append(files, projectFile)
	}

	// 4. Environment
	if err := loadFromEnv(cfg, sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	// 5. CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Normalize and validate
	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{Config: cfg, Sources: sources, Files: files}, nil
}

// loadConfigFile decodes TOML from path over cfg and records which keys it set.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, field := range configFields() {
		if md.IsDefined(field) {
			sources[field] = source
		}
	}
	return nil
}

// finalizeConfig normalizes enumerations, expands paths, and validates.
func finalizeConfig(cfg *Config) error {
	backend, ok := utils.NormalizeChoice(cfg.Backend,
		[]string{BackendFile, BackendMemory, BackendMySQL},
		map[string]string{"fs": BackendFile, "mem": BackendMemory, "sql": BackendMySQL})
	if !ok {
		return fmt.Errorf("invalid backend %q (want file, memory, or mysql)", cfg.Backend)
	}
	cfg.Backend = backend

	mode, ok := utils.NormalizeChoice(cfg.PersistMode,
		[]string{PersistAsync, PersistSync},
		map[string]string{"fire-and-forget": PersistAsync, "blocking": PersistSync})
	if !ok {
		return fmt.Errorf("invalid persist mode %q (want async or sync)", cfg.PersistMode)
	}
	cfg.PersistMode = mode

	if cfg.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", cfg.QueueSize)
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return fmt.Errorf("storage key is empty")
	}
	if cfg.Backend == BackendMySQL && cfg.MySQLDSN == "" {
		return fmt.Errorf("mysql backend requires mysql_dsn")
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.LogFile = expandPath(cfg.LogFile)
	return nil
}

// GetConfigFile returns the highest-priority config file that was read.
func (cws *ConfigWithSources) GetConfigFile() string {
	if len(cws.Files) == 0 {
		return ""
	}
	return cws.Files[len(cws.Files)-1]
}
