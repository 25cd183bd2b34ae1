package store

// Config holds configuration for the Store.
type Config struct {
	// PageSize is the number of documents returned per page by page queries.
	// Default: 10
	// Max: 1000
	PageSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PageSize: 10,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.PageSize < 1 {
		c.PageSize = 10
	}
	if c.PageSize > 1000 {
		c.PageSize = 1000
	}
}
