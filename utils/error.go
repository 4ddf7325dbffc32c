package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies a per-mutation import failure. The orchestrator keys
// its retry/continue/abort decisions on the kind, never on message text.
type ErrorKind string

const (
	ErrorKindTransient  ErrorKind = "TRANSIENT"  // infra hiccup; retried with backoff
	ErrorKindMapping    ErrorKind = "MAPPING"    // unresolvable ledger/party code, no fallback
	ErrorKindValidation ErrorKind = "VALIDATION" // unbalanced draft, non-leaf account, bad line
	ErrorKindDuplicate  ErrorKind = "DUPLICATE"  // already imported; recorded as skipped, not failed
	ErrorKindConfig     ErrorKind = "CONFIG"     // missing required run configuration; aborts the run
)

// ImportStage names the pipeline stage an error was raised in, so a failed
// subset can be re-run with enough context.
type ImportStage string

const (
	StageFetch    ImportStage = "fetch"
	StageClassify ImportStage = "classify"
	StageResolve  ImportStage = "resolve"
	StageDedup    ImportStage = "dedup"
	StageBuild    ImportStage = "build"
	StageCommit   ImportStage = "commit"
)

// ImportError is the structured record of a per-mutation failure: kind,
// external mutation id, stage, message. Truncation for display is a
// presentation concern and never happens here.
type ImportError struct {
	Kind         ErrorKind
	MutationID   int64
	MutationType string
	Stage        ImportStage
	Message      string
	Err          error
}

func (e *ImportError) Error() string {
	if e.MutationID > 0 {
		return fmt.Sprintf("%s error at %s (mutation %d): %s", e.Kind, e.Stage, e.MutationID, e.Message)
	}
	return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Stage, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func NewImportError(kind ErrorKind, stage ImportStage, mutationID int64, mutationType string, err error) *ImportError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ImportError{
		Kind:         kind,
		MutationID:   mutationID,
		MutationType: mutationType,
		Stage:        stage,
		Message:      msg,
		Err:          err,
	}
}

// KindOf extracts the kind from an error chain. Unknown errors are treated as
// transient so the retry policy, not the classifier, gets the final word.
func KindOf(err error) ErrorKind {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ErrorKindTransient
}

func IsTransient(err error) bool {
	return KindOf(err) == ErrorKindTransient
}

func IsDuplicate(err error) bool {
	return KindOf(err) == ErrorKindDuplicate
}

func IsFatalConfig(err error) bool {
	return KindOf(err) == ErrorKindConfig
}
