package metrics

import "path/filepath"

// TextfileName is the file written inside the textfile directory.
const TextfileName = "sense_hat.prom"

// DefaultTextfileDir is the textfile collector directory of the Debian
// node exporter package.
const DefaultTextfileDir = "/var/lib/prometheus/node-exporter"

// Config defines where metrics are exposed.
type Config struct {
	// TextfileDir is the folder receiving sense_hat.prom.
	TextfileDir string `json:"textfile_dir"`
	// ListenAddr serves the daemon's own metrics on /metrics when set.
	ListenAddr string `json:"listen_addr"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TextfileDir == "" {
		c.TextfileDir = DefaultTextfileDir
	}
}

// TextfilePath returns the full path of the exposition file.
func (c Config) TextfilePath() string {
	return filepath.Join(c.TextfileDir, TextfileName)
}
