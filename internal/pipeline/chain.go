package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"casewarden/internal/model"
)

// The step-hash chain substitutes for a persisted audit log: each hash folds
// in the previous one and the snapshot fingerprint, so the chain is
// recomputable from the case snapshot alone, and any edit to case files
// (article, registry or evidence bytes) changes every hash downstream of it.

// stepView is the deterministic projection of a step used for hashing.
// Timestamps and durations are excluded so an unchanged case reproduces an
// identical chain run after run.
type stepView struct {
	Ordinal int              `json:"ordinal"`
	Name    string           `json:"name"`
	Status  model.StepStatus `json:"status"`
	Metrics map[string]int   `json:"metrics,omitempty"`
	Issues  []model.Issue    `json:"issues,omitempty"`
	Details map[string]any   `json:"details,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// chainHash computes a step's hash from the previous step's hash, the digest
// of the case inputs, and the step's deterministic output.
func chainHash(previousHash, inputDigest string, result *model.StepResult) string {
	view := stepView{
		Ordinal: result.Ordinal,
		Name:    result.Name,
		Status:  result.Status,
		Metrics: result.Metrics,
		Issues:  result.Issues,
		Details: result.Details,
		Error:   result.Error,
	}

	// json.Marshal serializes map keys in sorted order, so the encoding is
	// canonical for the fields hashed here.
	encoded, err := json.Marshal(view)
	if err != nil {
		// Only unmarshalable Details values can land here; hash the error
		// text instead so the chain still advances deterministically.
		encoded = []byte("encode-error:" + err.Error())
	}

	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write([]byte{0})
	h.Write([]byte(inputDigest))
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}
