package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that talk to the
// NSIDC archive.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "icebridge-archive/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// IndexConfig holds settings for the index stage.
type IndexConfig struct {
	HTTPConfig `yaml:",inline"`

	// ArchiveDir is the local archive root. Each flight gets a
	// subdirectory named after its ID (contains per-product files and
	// parsed index CSVs).
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// FetchNextDay merges the next day's remote listing into the index.
	FetchNextDay bool `json:"fetch_next_day" yaml:"fetch_next_day"`

	// RefetchIndex forces a refetch even when a parsed index exists.
	RefetchIndex bool `json:"refetch_index" yaml:"refetch_index"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ArchiveDir is the local archive root.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// BatchSize caps how many files one progress batch covers (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// DownloadDelay is the delay between consecutive downloads.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// MaxFiles caps the number of files fetched per run; <=0 means no cap.
	MaxFiles int `json:"max_files" yaml:"max_files"`

	// DryRun prints planned downloads without fetching.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// ValidateConfig holds settings for the validate stage.
type ValidateConfig struct {
	// ArchiveDir is the local archive root.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// Wipe removes files that fail validation (and their sidecars).
	Wipe bool `json:"wipe" yaml:"wipe"`

	// GdalinfoPath, when set, validates images by running gdalinfo
	// instead of checking magic bytes.
	GdalinfoPath string `json:"gdalinfo_path,omitempty" yaml:"gdalinfo_path,omitempty"`

	// GdalImage, when set, runs gdalinfo from a GDAL container image
	// via docker or podman. Takes precedence over GdalinfoPath.
	GdalImage string `json:"gdal_image,omitempty" yaml:"gdal_image,omitempty"`
}

// ReconcileConfig holds settings for the reconcile stage.
type ReconcileConfig struct {
	// ArchiveDir is the local archive root.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// RulesFile is the path of the special-cases YAML file.
	RulesFile string `json:"rules_file" yaml:"rules_file"`

	// DryRun reports planned moves without touching the filesystem.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// CatalogConfig holds settings for the catalog stage.
type CatalogConfig struct {
	// ArchiveDir is the local archive root. The database lives at
	// ArchiveDir/catalog/icebridge.db.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// MaxResults is the default maximum number of query results (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// GapThreshold is the frame-number step above which a coverage gap is
	// reported (default 1, i.e. any missing frame).
	GapThreshold int `json:"gap_threshold" yaml:"gap_threshold"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Index     IndexConfig     `json:"index" yaml:"index"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	Validate  ValidateConfig  `json:"validate" yaml:"validate"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
}
