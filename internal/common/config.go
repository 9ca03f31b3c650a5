package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Paths  PathsConfig
	Ingest IngestConfig
	OCR    OCRConfig
	Output OutputConfig
	Job    JobConfig
	Log    LogConfig
}

// PathsConfig holds the directory roots both daemons operate on
type PathsConfig struct {
	InDir    string
	OutDir   string
	ErrorDir string
	LogDir   string
	SpoolDir string
}

// IngestConfig holds watcher and scanner tuning
type IngestConfig struct {
	DirSettle       time.Duration
	FileWaitRetries int
	FileWaitStep    time.Duration
	FollowReparse   bool
	ExcludeDirs     []string
}

// OCRConfig holds text extraction, rasterization and recognition tuning
type OCRConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string

	Lang         string
	ExtraArgs    []string
	TessdataDir  string
	Threads      int
	DPI          int
	TextMinChars int
}

// OutputConfig selects which artifacts are emitted
type OutputConfig struct {
	EmitText bool
	EmitPDF  bool
}

// JobConfig holds worker execution limits
type JobConfig struct {
	Workers   int
	TimeLimit time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			InDir:    getEnv("IN_DIR", "./in"),
			OutDir:   getEnv("OUT_DIR", "./out"),
			ErrorDir: getEnv("ERROR_DIR", "./error"),
			LogDir:   getEnv("LOG_DIR", "./log"),
			SpoolDir: getEnv("SPOOL_DIR", "./spool"),
		},
		Ingest: IngestConfig{
			DirSettle:       getEnvAsDuration("DIR_SETTLE", 2*time.Second),
			FileWaitRetries: getEnvAsInt("FILE_WAIT_RETRIES", 40),
			FileWaitStep:    getEnvAsDuration("FILE_WAIT_STEP", 500*time.Millisecond),
			FollowReparse:   getEnvAsBool("FOLLOW_REPARSE", false),
			ExcludeDirs:     getEnvAsList("EXCLUDE_DIRS", "$recycle.bin,System Volume Information,__pycache__,.git"),
		},
		OCR: OCRConfig{
			Pdftotext:    getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:     getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:    getEnv("TESSERACT_BIN", "tesseract"),
			Lang:         getEnv("OCR_LANG", "eng"),
			ExtraArgs:    getEnvAsFields("TESSERACT_CONFIG", "--psm 6"),
			TessdataDir:  getEnv("TESSDATA_DIR", ""),
			Threads:      getEnvAsInt("OCR_THREADS", 2),
			DPI:          getEnvAsInt("OCR_DPI", 300),
			TextMinChars: getEnvAsInt("TEXT_MIN_CHARS", 16),
		},
		Output: OutputConfig{
			EmitText: getEnvAsBool("OUTPUT_TXT", true),
			EmitPDF:  getEnvAsBool("OUTPUT_PDF", true),
		},
		Job: JobConfig{
			Workers:   getEnvAsInt("JOB_WORKERS", 1),
			TimeLimit: getEnvAsDuration("JOB_TIME_LIMIT", 8*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
}

// Validate rejects configurations the daemons cannot run with.
func (c *Config) Validate() error {
	if c.Paths.InDir == "" || c.Paths.OutDir == "" || c.Paths.ErrorDir == "" ||
		c.Paths.LogDir == "" || c.Paths.SpoolDir == "" {
		return NewAppError("CONFIG_ERROR", "directory roots must not be empty", ErrInvalidInput)
	}
	if c.Ingest.FileWaitRetries <= 0 {
		return NewAppError("CONFIG_ERROR", "FILE_WAIT_RETRIES must be positive", ErrInvalidInput)
	}
	if c.Ingest.FileWaitStep <= 0 {
		return NewAppError("CONFIG_ERROR", "FILE_WAIT_STEP must be positive", ErrInvalidInput)
	}
	if c.OCR.Threads <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_THREADS must be positive", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI must be positive", ErrInvalidInput)
	}
	if c.OCR.TextMinChars < 0 {
		return NewAppError("CONFIG_ERROR", "TEXT_MIN_CHARS must not be negative", ErrInvalidInput)
	}
	if c.Job.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "JOB_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Job.TimeLimit <= 0 {
		return NewAppError("CONFIG_ERROR", "JOB_TIME_LIMIT must be positive", ErrInvalidInput)
	}
	return nil
}

// Ensure creates every directory root that does not exist yet.
func (p *PathsConfig) Ensure() error {
	for _, dir := range []string{p.InDir, p.OutDir, p.ErrorDir, p.LogDir, p.SpoolDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapError(err, "create directory "+dir)
		}
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAsFields splits a value on whitespace, dropping empty entries.
func getEnvAsFields(key, defaultValue string) []string {
	return strings.Fields(getEnv(key, defaultValue))
}
