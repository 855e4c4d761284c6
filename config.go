package espc

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/esplang/espc/intake"
	"github.com/esplang/espc/lexer"
	"github.com/esplang/espc/parser"
	"github.com/esplang/espc/refs"
	"github.com/esplang/espc/semantic"
	"github.com/esplang/espc/structural"
)

// Config is the ESP compiler configuration. Every limit has a production
// default; a configuration file and ESPC_* environment variables override
// them.
type Config struct {
	Intake     IntakeConfig     `yaml:"intake"`
	Lexer      LexerConfig      `yaml:"lexer"`
	Parser     ParserConfig     `yaml:"parser"`
	References ReferencesConfig `yaml:"references"`
	Semantic   SemanticConfig   `yaml:"semantic"`
	Limits     LimitsConfig     `yaml:"limits"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
}

// IntakeConfig bounds file intake.
type IntakeConfig struct {
	MaxFileSize      int64  `yaml:"max_file_size"`
	RequireExtension bool   `yaml:"require_extension"`
	Extension        string `yaml:"extension"`
}

// LexerConfig bounds scanning.
type LexerConfig struct {
	MaxStringLength     int `yaml:"max_string_length"`
	MaxIdentifierLength int `yaml:"max_identifier_length"`
	MaxTokenCount       int `yaml:"max_token_count"`
	MaxCommentLength    int `yaml:"max_comment_length"`
}

// ParserConfig bounds parsing.
type ParserConfig struct {
	MaxParseDepth int `yaml:"max_parse_depth"`
	MaxErrors     int `yaml:"max_errors"`
}

// ReferencesConfig bounds reference validation.
type ReferencesConfig struct {
	MaxReportedCycles int `yaml:"max_reported_cycles"`
}

// SemanticConfig bounds semantic analysis.
type SemanticConfig struct {
	MaxErrors      int `yaml:"max_errors"`
	MaxSetOperands int `yaml:"max_set_operands"`
}

// LimitsConfig holds the structural implementation limits.
type LimitsConfig struct {
	MaxGlobalSymbols       int `yaml:"max_global_symbols"`
	MaxLocalSymbolsPerCtn  int `yaml:"max_local_symbols_per_ctn"`
	MaxSymbolRelationships int `yaml:"max_symbol_relationships"`
	MaxReferenceDepth      int `yaml:"max_reference_depth"`
	MaxReferencesPerSymbol int `yaml:"max_references_per_symbol"`
	MaxDependencyNodes     int `yaml:"max_dependency_nodes"`
	MaxNestingDepth        int `yaml:"max_nesting_depth"`
	MaxCriteriaBlocks      int `yaml:"max_criteria_blocks"`
	MaxSymbolsPerDef       int `yaml:"max_symbols_per_def"`
}

// RuntimeConfig bounds whole-pipeline execution.
type RuntimeConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxDiagnostics int `yaml:"max_diagnostics"`
}

// timeoutHardCap bounds the configurable per-file timeout.
const timeoutHardCap = 3600

// DefaultConfig returns the production configuration.
func DefaultConfig() *Config {
	return &Config{
		Intake: IntakeConfig{
			MaxFileSize:      10 << 20,
			RequireExtension: true,
			Extension:        ".esp",
		},
		Lexer: LexerConfig{
			MaxStringLength:     1 << 20,
			MaxIdentifierLength: 255,
			MaxTokenCount:       1_000_000,
			MaxCommentLength:    10_000,
		},
		Parser: ParserConfig{
			MaxParseDepth: 100,
			MaxErrors:     50,
		},
		References: ReferencesConfig{
			MaxReportedCycles: 10,
		},
		Semantic: SemanticConfig{
			MaxErrors:      1000,
			MaxSetOperands: 100,
		},
		Limits: LimitsConfig{
			MaxGlobalSymbols:       50_000,
			MaxLocalSymbolsPerCtn:  1_000,
			MaxSymbolRelationships: 100_000,
			MaxReferenceDepth:      50,
			MaxReferencesPerSymbol: 10_000,
			MaxDependencyNodes:     100_000,
			MaxNestingDepth:        10,
			MaxCriteriaBlocks:      1_000,
			MaxSymbolsPerDef:       10_000,
		},
		Runtime: RuntimeConfig{
			TimeoutSeconds: 300,
			MaxDiagnostics: 10_000,
		},
	}
}

// LoadConfig loads configuration from the given YAML file, layered over the
// defaults. An empty path loads defaults plus environment overrides only.
// A .env file in the working directory is honored before the environment is
// read.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ignore a missing .env; it is an optional convenience.
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := envInt64("ESPC_MAX_FILE_SIZE"); ok {
		cfg.Intake.MaxFileSize = v
	}
	if v, ok := envInt("ESPC_MAX_TOKEN_COUNT"); ok {
		cfg.Lexer.MaxTokenCount = v
	}
	if v, ok := envInt("ESPC_MAX_PARSE_DEPTH"); ok {
		cfg.Parser.MaxParseDepth = v
	}
	if v, ok := envInt("ESPC_TIMEOUT_SECONDS"); ok {
		cfg.Runtime.TimeoutSeconds = v
	}
	if v := os.Getenv("ESPC_REQUIRE_EXTENSION"); v != "" {
		cfg.Intake.RequireExtension = v == "true" || v == "1"
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envInt64(name string) (int64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for consistency and rejects values beyond
// the hard caps.
func (c *Config) Validate() error {
	if c.Intake.MaxFileSize <= 0 {
		return fmt.Errorf("%w: intake.max_file_size must be positive", ErrConfigValidation)
	}
	if c.Intake.MaxFileSize > intake.HardSizeCap {
		return fmt.Errorf("%w: intake.max_file_size exceeds the 50 MB hard cap", ErrConfigValidation)
	}
	if c.Parser.MaxParseDepth <= 0 {
		return fmt.Errorf("%w: parser.max_parse_depth must be positive", ErrConfigValidation)
	}
	if c.Runtime.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: runtime.timeout_seconds must be positive", ErrConfigValidation)
	}
	if c.Runtime.TimeoutSeconds > timeoutHardCap {
		return fmt.Errorf("%w: runtime.timeout_seconds exceeds the hard cap of %d", ErrConfigValidation, timeoutHardCap)
	}
	return nil
}

// Timeout returns the per-file wall-clock budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Runtime.TimeoutSeconds) * time.Second
}

// intakeOptions maps the config onto the intake package options.
func (c *Config) intakeOptions() intake.Options {
	return intake.Options{
		MaxFileSize:      c.Intake.MaxFileSize,
		RequireExtension: c.Intake.RequireExtension,
		Extension:        c.Intake.Extension,
	}
}

func (c *Config) lexerLimits() lexer.Limits {
	return lexer.Limits{
		MaxStringLength:     c.Lexer.MaxStringLength,
		MaxIdentifierLength: c.Lexer.MaxIdentifierLength,
		MaxTokenCount:       c.Lexer.MaxTokenCount,
		MaxCommentLength:    c.Lexer.MaxCommentLength,
	}
}

func (c *Config) parserOptions() parser.Options {
	return parser.Options{
		MaxParseDepth: c.Parser.MaxParseDepth,
		MaxErrors:     c.Parser.MaxErrors,
	}
}

func (c *Config) refsOptions() refs.Options {
	return refs.Options{MaxReportedCycles: c.References.MaxReportedCycles}
}

func (c *Config) semanticOptions() semantic.Options {
	return semantic.Options{
		MaxErrors:      c.Semantic.MaxErrors,
		MaxSetOperands: c.Semantic.MaxSetOperands,
	}
}

func (c *Config) structuralLimits() structural.Limits {
	return structural.Limits{
		MaxGlobalSymbols:       c.Limits.MaxGlobalSymbols,
		MaxLocalSymbolsPerCtn:  c.Limits.MaxLocalSymbolsPerCtn,
		MaxSymbolRelationships: c.Limits.MaxSymbolRelationships,
		MaxReferenceDepth:      c.Limits.MaxReferenceDepth,
		MaxReferencesPerSymbol: c.Limits.MaxReferencesPerSymbol,
		MaxDependencyNodes:     c.Limits.MaxDependencyNodes,
		MaxSetOperands:         c.Semantic.MaxSetOperands,
		MaxNestingDepth:        c.Limits.MaxNestingDepth,
		MaxCriteriaBlocks:      c.Limits.MaxCriteriaBlocks,
		MaxSymbolsPerDef:       c.Limits.MaxSymbolsPerDef,
	}
}
