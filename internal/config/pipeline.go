package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/pipeline"
)

const (
	EnvPipelineFuzzyThreshold = "ARCHIVAR_PIPELINE_FUZZY_THRESHOLD"
	EnvPipelineTaxTagPattern  = "ARCHIVAR_PIPELINE_TAX_TAG_PATTERN"

	EnvPipelineAutoCreateCorrespondents = "ARCHIVAR_PIPELINE_AUTO_CREATE_CORRESPONDENTS"
	EnvPipelineAutoCreateTags           = "ARCHIVAR_PIPELINE_AUTO_CREATE_TAGS"
	EnvPipelineAutoCreateDocumentTypes  = "ARCHIVAR_PIPELINE_AUTO_CREATE_DOCUMENT_TYPES"
)

// PipelineConfig holds resolution and scoring parameters.
type PipelineConfig struct {
	FuzzyThreshold float64            `toml:"fuzzy_threshold"`
	TaxTagPattern  string             `toml:"tax_tag_pattern"`
	Weights        classifier.Weights `toml:"weights"`

	AutoCreateCorrespondents bool `toml:"auto_create_correspondents"`
	AutoCreateTags           bool `toml:"auto_create_tags"`
	AutoCreateDocumentTypes  bool `toml:"auto_create_document_types"`
}

// Options returns the pipeline runtime options.
func (c *PipelineConfig) Options() pipeline.Options {
	return pipeline.Options{
		AutoCreateCorrespondents: c.AutoCreateCorrespondents,
		AutoCreateTags:           c.AutoCreateTags,
		AutoCreateDocumentTypes:  c.AutoCreateDocumentTypes,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Auto-create flags merge as
// logical OR: an overlay can enable but not disable creation.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.FuzzyThreshold != 0 {
		c.FuzzyThreshold = overlay.FuzzyThreshold
	}
	if overlay.TaxTagPattern != "" {
		c.TaxTagPattern = overlay.TaxTagPattern
	}
	if overlay.Weights != (classifier.Weights{}) {
		c.Weights = overlay.Weights
	}
	c.AutoCreateCorrespondents = c.AutoCreateCorrespondents || overlay.AutoCreateCorrespondents
	c.AutoCreateTags = c.AutoCreateTags || overlay.AutoCreateTags
	c.AutoCreateDocumentTypes = c.AutoCreateDocumentTypes || overlay.AutoCreateDocumentTypes
}

func (c *PipelineConfig) loadDefaults() {
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 0.85
	}
	if c.TaxTagPattern == "" {
		c.TaxTagPattern = "Steuer %d"
	}
	if c.Weights == (classifier.Weights{}) {
		c.Weights = classifier.DefaultWeights()
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineFuzzyThreshold); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.FuzzyThreshold = threshold
		}
	}
	if v := os.Getenv(EnvPipelineTaxTagPattern); v != "" {
		c.TaxTagPattern = v
	}
	if v := os.Getenv(EnvPipelineAutoCreateCorrespondents); v != "" {
		c.AutoCreateCorrespondents = parseBool(v)
	}
	if v := os.Getenv(EnvPipelineAutoCreateTags); v != "" {
		c.AutoCreateTags = parseBool(v)
	}
	if v := os.Getenv(EnvPipelineAutoCreateDocumentTypes); v != "" {
		c.AutoCreateDocumentTypes = parseBool(v)
	}
}

func (c *PipelineConfig) validate() error {
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("invalid fuzzy_threshold: %v", c.FuzzyThreshold)
	}
	if !strings.Contains(c.TaxTagPattern, "%d") {
		return fmt.Errorf("tax_tag_pattern must contain %%d: %q", c.TaxTagPattern)
	}

	sum := c.Weights.Self + c.Weights.Mapping + c.Weights.Fuzzy + c.Weights.Special
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}
	return nil
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
