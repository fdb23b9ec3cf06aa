package config

// WebConfig holds crawler limits for URL and site ingestion.
//
// The defaults are deliberately polite: two concurrent requests per domain
// with a one second delay keeps haku well below the rate most sites tolerate
// from a well-behaved crawler.
type WebConfig struct {
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds (default: 1000)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// MaxPages caps how many pages a site crawl may visit (default: 10)
	MaxPages int `mapstructure:"max_pages" json:"max_pages"`
}
