package config

import (
	"fmt"
	"os"
	"time"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/pkg/formatting"
)

const (
	EnvArchiveBaseURL         = "ARCHIVAR_ARCHIVE_BASE_URL"
	EnvArchiveToken           = "ARCHIVAR_ARCHIVE_TOKEN"
	EnvArchiveTimeout         = "ARCHIVAR_ARCHIVE_TIMEOUT"
	EnvArchiveMaxDocumentSize = "ARCHIVAR_ARCHIVE_MAX_DOCUMENT_SIZE"

	EnvArchiveTriggerTag         = "ARCHIVAR_ARCHIVE_TRIGGER_TAG"
	EnvArchiveStatusField        = "ARCHIVAR_ARCHIVE_STATUS_FIELD"
	EnvArchivePersonField        = "ARCHIVAR_ARCHIVE_PERSON_FIELD"
	EnvArchivePaginationField    = "ARCHIVAR_ARCHIVE_PAGINATION_FIELD"
	EnvArchiveHouseRegisterField = "ARCHIVAR_ARCHIVE_HOUSE_REGISTER_FIELD"
	EnvArchiveHouseSequenceField = "ARCHIVAR_ARCHIVE_HOUSE_SEQUENCE_FIELD"
)

// ArchiveConfig holds the connection and well-known entity names for the
// document archive.
type ArchiveConfig struct {
	BaseURL         string `toml:"base_url"`
	Token           string `toml:"token"`
	Timeout         string `toml:"timeout"`
	MaxDocumentSize string `toml:"max_document_size"`

	TriggerTag         string `toml:"trigger_tag"`
	StatusField        string `toml:"status_field"`
	PersonField        string `toml:"person_field"`
	PaginationField    string `toml:"pagination_field"`
	HouseRegisterField string `toml:"house_register_field"`
	HouseSequenceField string `toml:"house_sequence_field"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *ArchiveConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// MaxDocumentSizeBytes returns MaxDocumentSize as a byte count.
func (c *ArchiveConfig) MaxDocumentSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxDocumentSize)
	if err != nil {
		return 32 * 1024 * 1024
	}
	return size
}

// WellknownNames returns the configured entity names the pipeline depends on.
func (c *ArchiveConfig) WellknownNames() archive.WellknownNames {
	return archive.WellknownNames{
		TriggerTag:         c.TriggerTag,
		StatusField:        c.StatusField,
		PersonField:        c.PersonField,
		PaginationField:    c.PaginationField,
		HouseRegisterField: c.HouseRegisterField,
		HouseSequenceField: c.HouseSequenceField,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ArchiveConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ArchiveConfig) Merge(overlay *ArchiveConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxDocumentSize != "" {
		c.MaxDocumentSize = overlay.MaxDocumentSize
	}
	if overlay.TriggerTag != "" {
		c.TriggerTag = overlay.TriggerTag
	}
	if overlay.StatusField != "" {
		c.StatusField = overlay.StatusField
	}
	if overlay.PersonField != "" {
		c.PersonField = overlay.PersonField
	}
	if overlay.PaginationField != "" {
		c.PaginationField = overlay.PaginationField
	}
	if overlay.HouseRegisterField != "" {
		c.HouseRegisterField = overlay.HouseRegisterField
	}
	if overlay.HouseSequenceField != "" {
		c.HouseSequenceField = overlay.HouseSequenceField
	}
}

func (c *ArchiveConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
	if c.MaxDocumentSize == "" {
		c.MaxDocumentSize = "32MB"
	}
	if c.TriggerTag == "" {
		c.TriggerTag = "NEU"
	}
	if c.StatusField == "" {
		c.StatusField = "KI-Status"
	}
	if c.PersonField == "" {
		c.PersonField = "Person"
	}
	if c.PaginationField == "" {
		c.PaginationField = "Paginierung"
	}
	if c.HouseRegisterField == "" {
		c.HouseRegisterField = "Haus-Register"
	}
	if c.HouseSequenceField == "" {
		c.HouseSequenceField = "Haus-Ordnungszahl"
	}
}

func (c *ArchiveConfig) loadEnv() {
	if v := os.Getenv(EnvArchiveBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvArchiveToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvArchiveTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvArchiveMaxDocumentSize); v != "" {
		c.MaxDocumentSize = v
	}
	if v := os.Getenv(EnvArchiveTriggerTag); v != "" {
		c.TriggerTag = v
	}
	if v := os.Getenv(EnvArchiveStatusField); v != "" {
		c.StatusField = v
	}
	if v := os.Getenv(EnvArchivePersonField); v != "" {
		c.PersonField = v
	}
	if v := os.Getenv(EnvArchivePaginationField); v != "" {
		c.PaginationField = v
	}
	if v := os.Getenv(EnvArchiveHouseRegisterField); v != "" {
		c.HouseRegisterField = v
	}
	if v := os.Getenv(EnvArchiveHouseSequenceField); v != "" {
		c.HouseSequenceField = v
	}
}

func (c *ArchiveConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if c.Token == "" {
		return fmt.Errorf("token required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxDocumentSize); err != nil {
		return fmt.Errorf("invalid max_document_size: %w", err)
	}
	return nil
}
