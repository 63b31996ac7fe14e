package model

// TextRequest is the incoming JSON body shared by all text operations.
type TextRequest struct {
	Text       string `json:"text" binding:"required"`
	Model      string `json:"model,omitempty"`       // defaults to the configured model
	TargetLang string `json:"target_lang,omitempty"` // translate only
}

// GenerationResult is what the orchestrator hands back to the HTTP layer.
type GenerationResult struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	Cached    bool   `json:"cached"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	LatencyMs int64  `json:"latency_ms"`
}

// PullRequest asks the model server to download a model.
type PullRequest struct {
	Name string `json:"name" binding:"required"`
}

// ModelInfo describes one model installed on the model server.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Digest     string `json:"digest,omitempty"`
}
