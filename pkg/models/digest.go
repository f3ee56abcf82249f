package models

// DigestResult is the outcome of one daily news digest run.
type DigestResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Summary     string   `json:"summary,omitempty"`
	Articles    int      `json:"articles"`
	Symbols     []string `json:"symbols,omitempty"`
	GeneratedAt string   `json:"generatedAt,omitempty"`
}
