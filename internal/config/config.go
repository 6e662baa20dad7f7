// Package config provides configuration structures and loading for catalogsync.
package config

// Config represents the complete application configuration.
type Config struct {
	Dump         DumpConfig         `yaml:"dump" mapstructure:"dump"`
	Legacy       LegacyConfig       `yaml:"legacy" mapstructure:"legacy"`
	Snapshot     SnapshotConfig     `yaml:"snapshot" mapstructure:"snapshot"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Target       DatabaseConfig     `yaml:"target" mapstructure:"target"`
	TargetSchema TargetSchemaConfig `yaml:"target_schema" mapstructure:"target_schema"`
	Matching     MatchingConfig     `yaml:"matching" mapstructure:"matching"`
	Processing   ProcessingConfig   `yaml:"processing" mapstructure:"processing"`
	Codes        CodesConfig        `yaml:"codes" mapstructure:"codes"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// DumpConfig describes the legacy dump file and how it is scanned.
type DumpConfig struct {
	Path                  string `yaml:"path" mapstructure:"path"`
	MaxLineBytes          int    `yaml:"max_line_bytes" mapstructure:"max_line_bytes"`
	ProgressIntervalLines int    `yaml:"progress_interval_lines" mapstructure:"progress_interval_lines"`
}

// LegacyConfig describes the legacy schema found in the dump.
type LegacyConfig struct {
	TablePrefix           string        `yaml:"table_prefix" mapstructure:"table_prefix"`
	PreferredLocale       int64         `yaml:"preferred_locale" mapstructure:"preferred_locale"`
	ReservedCategoryNames []string      `yaml:"reserved_category_names" mapstructure:"reserved_category_names"`
	Columns               ColumnsConfig `yaml:"columns" mapstructure:"columns"`
}

// ColumnsConfig holds the fixed positional layout of every table of interest.
type ColumnsConfig struct {
	CategoryLang    NameColumns     `yaml:"category_lang" mapstructure:"category_lang"`
	ProductLang     NameColumns     `yaml:"product_lang" mapstructure:"product_lang"`
	Product         ProductColumns  `yaml:"product" mapstructure:"product"`
	CategoryProduct JunctionColumns `yaml:"category_product" mapstructure:"category_product"`
}

// NameColumns positions the id, locale and name fields of a localized name table.
type NameColumns struct {
	ID     int `yaml:"id" mapstructure:"id"`
	Locale int `yaml:"locale" mapstructure:"locale"`
	Name   int `yaml:"name" mapstructure:"name"`
}

// ProductColumns positions the id and default category fields of the product table.
type ProductColumns struct {
	ID              int `yaml:"id" mapstructure:"id"`
	DefaultCategory int `yaml:"default_category" mapstructure:"default_category"`
}

// JunctionColumns positions both foreign keys of the category/product junction table.
type JunctionColumns struct {
	Category int `yaml:"category" mapstructure:"category"`
	Product  int `yaml:"product" mapstructure:"product"`
}

// SnapshotConfig selects where the reconstructed graph is persisted.
type SnapshotConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // file or s3
	Path    string `yaml:"path" mapstructure:"path"`
	Object  string `yaml:"object" mapstructure:"object"`
}

// StorageConfig holds the S3-compatible object store settings used by the s3 snapshot backend.
type StorageConfig struct {
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// TargetSchemaConfig names the tables and columns of the live target store.
type TargetSchemaConfig struct {
	CategoryTable    string `yaml:"category_table" mapstructure:"category_table"`
	ProductTable     string `yaml:"product_table" mapstructure:"product_table"`
	AssociationTable string `yaml:"association_table" mapstructure:"association_table"`
	IDColumn         string `yaml:"id_column" mapstructure:"id_column"`
	NameColumn       string `yaml:"name_column" mapstructure:"name_column"`
	ReferenceColumn  string `yaml:"reference_column" mapstructure:"reference_column"`
	AssocCategoryCol string `yaml:"association_category_column" mapstructure:"association_category_column"`
	AssocProductCol  string `yaml:"association_product_column" mapstructure:"association_product_column"`
}

// MatchingConfig controls the fallback strategies used when resolving names.
type MatchingConfig struct {
	ContainsFallback bool     `yaml:"contains_fallback" mapstructure:"contains_fallback"`
	LocaleSuffixes   []string `yaml:"locale_suffixes" mapstructure:"locale_suffixes"`
}

// ProcessingConfig represents batch processing settings.
type ProcessingConfig struct {
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	SleepSeconds float64 `yaml:"sleep_seconds" mapstructure:"sleep_seconds"`
}

// CodesConfig controls secondary code generation.
type CodesConfig struct {
	Kind        string `yaml:"kind" mapstructure:"kind"` // alphanumeric or ean13
	Table       string `yaml:"table" mapstructure:"table"`
	Column      string `yaml:"column" mapstructure:"column"`
	Length      int    `yaml:"length" mapstructure:"length"` // alphanumeric only
	Prefix      string `yaml:"prefix" mapstructure:"prefix"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Dump: DumpConfig{
			MaxLineBytes:          64 * 1024 * 1024,
			ProgressIntervalLines: 10000,
		},
		Legacy: LegacyConfig{
			TablePrefix:           "ps_",
			PreferredLocale:       1,
			ReservedCategoryNames: []string{"Root", "Home", "Accueil", "Racine", "Inicio", "Start"},
			Columns: ColumnsConfig{
				CategoryLang:    NameColumns{ID: 0, Locale: 2, Name: 3},
				ProductLang:     NameColumns{ID: 0, Locale: 2, Name: 9},
				Product:         ProductColumns{ID: 0, DefaultCategory: 3},
				CategoryProduct: JunctionColumns{Category: 0, Product: 1},
			},
		},
		Snapshot: SnapshotConfig{
			Backend: "file",
			Path:    "category_graph.json",
			Object:  "snapshots/category_graph.json",
		},
		Storage: StorageConfig{
			Endpoint:       "localhost:9000",
			Bucket:         "catalogsync",
			TimeoutSeconds: 30,
		},
		Target: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		TargetSchema: TargetSchemaConfig{
			CategoryTable:    "categories",
			ProductTable:     "products",
			AssociationTable: "category_product",
			IDColumn:         "id",
			NameColumn:       "name",
			ReferenceColumn:  "reference",
			AssocCategoryCol: "category_id",
			AssocProductCol:  "product_id",
		},
		Matching: MatchingConfig{
			ContainsFallback: true,
			LocaleSuffixes:   []string{"FR", "EN", "ES", "DE", "IT"},
		},
		Processing: ProcessingConfig{
			BatchSize:    500,
			Concurrency:  8,
			SleepSeconds: 0,
		},
		Codes: CodesConfig{
			Kind:        "ean13",
			Table:       "products",
			Column:      "ean13",
			Length:      10,
			MaxAttempts: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// TableName returns the prefixed legacy table name for a bare name such as "category_lang".
func (l LegacyConfig) TableName(bare string) string {
	return l.TablePrefix + bare
}
