package config

import "fmt"

// ArchiveConfig configures where ingested reports are archived.
type ArchiveConfig struct {
	S3 *S3ArchiveConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3ArchiveConfig contains settings for uploading reports to S3-compatible
// storage.
type S3ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
}

// IsEnabled reports whether S3 archiving is configured and switched on.
func (a *ArchiveConfig) IsEnabled() bool {
	return a.S3 != nil && a.S3.Enabled
}

// Validate checks the archive configuration for errors.
func (a *ArchiveConfig) Validate() error {
	if !a.IsEnabled() {
		return nil
	}

	if a.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3 archiving is enabled")
	}

	if (a.S3.AccessKeyID == "") != (a.S3.SecretAccessKey == "") {
		return fmt.Errorf("s3.access_key_id and s3.secret_access_key must be set together")
	}

	return nil
}
