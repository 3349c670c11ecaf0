package domain

// GenerationResult is the uniform outcome of a narrative generation request.
// Narrative is set iff Success; Error is set iff !Success. TimeRemainingSeconds
// is non-zero only for rate-limited refusals.
type GenerationResult struct {
	Success              bool   `json:"success"`
	Narrative            string `json:"narrative,omitempty"`
	Error                string `json:"error,omitempty"`
	Code                 string `json:"code,omitempty"`
	TimeRemainingSeconds int    `json:"timeRemaining,omitempty"`
	Warning              string `json:"warning,omitempty"`
}
