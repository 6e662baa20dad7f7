package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/catalogsync/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Scope selects the command-specific sections checked by Validate on top
// of the settings every command shares.
type Scope int

const (
	// ScopeExtract requires a readable dump description.
	ScopeExtract Scope = iota
	// ScopeTarget requires a target store connection and schema.
	ScopeTarget
	// ScopeCodes requires a target store connection and code settings.
	ScopeCodes
)

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate(scopes ...Scope) error {
	var errors ValidationErrors

	errors = append(errors, c.validateLegacy()...)
	errors = append(errors, c.validateSnapshot()...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateLogging()...)

	for _, scope := range scopes {
		switch scope {
		case ScopeExtract:
			errors = append(errors, c.validateDump()...)
		case ScopeTarget:
			errors = append(errors, c.validateDatabase("target", &c.Target)...)
			errors = append(errors, c.validateTargetSchema()...)
		case ScopeCodes:
			errors = append(errors, c.validateDatabase("target", &c.Target)...)
			errors = append(errors, c.validateCodes()...)
		}
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDump() ValidationErrors {
	var errors ValidationErrors

	if c.Dump.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "dump.path",
			Message: "path is required",
		})
	}

	if c.Dump.MaxLineBytes < 1024 {
		errors = append(errors, ValidationError{
			Field:   "dump.max_line_bytes",
			Message: "max_line_bytes must be at least 1024",
		})
	}

	if c.Dump.ProgressIntervalLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "dump.progress_interval_lines",
			Message: "progress_interval_lines cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLegacy() ValidationErrors {
	var errors ValidationErrors

	if c.Legacy.TablePrefix != "" && !sqlutil.IsValidIdentifier(c.Legacy.TablePrefix) {
		errors = append(errors, ValidationError{
			Field:   "legacy.table_prefix",
			Message: "table_prefix must contain only alphanumeric characters and underscores",
		})
	}

	positions := map[string]int{
		"columns.category_lang.id":          c.Legacy.Columns.CategoryLang.ID,
		"columns.category_lang.locale":      c.Legacy.Columns.CategoryLang.Locale,
		"columns.category_lang.name":        c.Legacy.Columns.CategoryLang.Name,
		"columns.product_lang.id":           c.Legacy.Columns.ProductLang.ID,
		"columns.product_lang.locale":       c.Legacy.Columns.ProductLang.Locale,
		"columns.product_lang.name":         c.Legacy.Columns.ProductLang.Name,
		"columns.product.id":                c.Legacy.Columns.Product.ID,
		"columns.product.default_category":  c.Legacy.Columns.Product.DefaultCategory,
		"columns.category_product.category": c.Legacy.Columns.CategoryProduct.Category,
		"columns.category_product.product":  c.Legacy.Columns.CategoryProduct.Product,
	}
	for field, pos := range positions {
		if pos < 0 {
			errors = append(errors, ValidationError{
				Field:   "legacy." + field,
				Message: "column position cannot be negative",
			})
		}
	}

	return errors
}

func (c *Config) validateSnapshot() ValidationErrors {
	var errors ValidationErrors

	switch c.Snapshot.Backend {
	case "file", "":
		if c.Snapshot.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "snapshot.path",
				Message: "path is required for the file backend",
			})
		}
	case "s3":
		if c.Snapshot.Object == "" {
			errors = append(errors, ValidationError{
				Field:   "snapshot.object",
				Message: "object is required for the s3 backend",
			})
		}
		errors = append(errors, c.validateStorage()...)
	default:
		errors = append(errors, ValidationError{
			Field:   "snapshot.backend",
			Message: "backend must be 'file' or 's3'",
		})
	}

	return errors
}

func (c *Config) validateStorage() ValidationErrors {
	var errors ValidationErrors

	if c.Storage.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.endpoint",
			Message: "endpoint is required",
		})
	}

	if c.Storage.Bucket == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.bucket",
			Message: "bucket is required",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	// The run lock pins one connection for the whole run.
	if need := c.Processing.Concurrency + 1; db.MaxConnections > 0 && db.MaxConnections < need {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: fmt.Sprintf("max_connections must be at least processing.concurrency + 1 (%d) or 0 for unlimited", need),
		})
	}

	return errors
}

func (c *Config) validateTargetSchema() ValidationErrors {
	var errors ValidationErrors

	s := c.TargetSchema
	names := []struct {
		field string
		value string
	}{
		{"category_table", s.CategoryTable},
		{"product_table", s.ProductTable},
		{"association_table", s.AssociationTable},
		{"id_column", s.IDColumn},
		{"name_column", s.NameColumn},
		{"reference_column", s.ReferenceColumn},
		{"association_category_column", s.AssocCategoryCol},
		{"association_product_column", s.AssocProductCol},
	}
	for _, n := range names {
		if !sqlutil.IsValidIdentifier(n.value) {
			errors = append(errors, ValidationError{
				Field:   "target_schema." + n.field,
				Message: fmt.Sprintf("%q is not a valid identifier", n.value),
			})
		}
	}

	return errors
}

func (c *Config) validateCodes() ValidationErrors {
	var errors ValidationErrors

	switch c.Codes.Kind {
	case "alphanumeric":
		if c.Codes.Length <= 0 {
			errors = append(errors, ValidationError{
				Field:   "codes.length",
				Message: "length must be positive",
			})
		}
	case "ean13":
		if len(c.Codes.Prefix) > 11 || strings.Trim(c.Codes.Prefix, "0123456789") != "" {
			errors = append(errors, ValidationError{
				Field:   "codes.prefix",
				Message: "prefix must be at most 11 digits",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "codes.kind",
			Message: "kind must be 'alphanumeric' or 'ean13'",
		})
	}

	if !sqlutil.IsValidIdentifier(c.Codes.Table) {
		errors = append(errors, ValidationError{
			Field:   "codes.table",
			Message: fmt.Sprintf("%q is not a valid identifier", c.Codes.Table),
		})
	}

	if !sqlutil.IsValidIdentifier(c.Codes.Column) {
		errors = append(errors, ValidationError{
			Field:   "codes.column",
			Message: fmt.Sprintf("%q is not a valid identifier", c.Codes.Column),
		})
	}

	if c.Codes.MaxAttempts <= 0 {
		errors = append(errors, ValidationError{
			Field:   "codes.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Processing.Concurrency <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.concurrency",
			Message: "concurrency must be positive",
		})
	}

	if c.Processing.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.sleep_seconds",
			Message: "sleep_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
