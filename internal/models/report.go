package models

// Stage is a state of one orchestration run.
type Stage string

const (
	StageIdle              Stage = "idle"
	StageMatching          Stage = "matching"
	StageGeneratingContent Stage = "generating_content"
	StageMutating          Stage = "mutating"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// ProgressEvent is emitted on every stage transition and slot completion.
// Percent is non-decreasing within a run.
type ProgressEvent struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// GenerationReport summarizes one orchestration run.
type GenerationReport struct {
	RunID             string   `json:"run_id"`
	Status            Stage    `json:"status"`
	MatchedTemplateID string   `json:"matched_template_id"`
	VariablesUsed     []string `json:"variables_used"`
	FallbacksUsed     []string `json:"fallbacks_used"`
	ElapsedMs         int64    `json:"elapsed_ms"`
	Error             string   `json:"error,omitempty"`
}
