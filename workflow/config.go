package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RunConfig carries everything a migration run needs up front. There are no
// module-level defaults to discover mid-run: a config that does not validate
// aborts the run before the first mutation is touched.
type RunConfig struct {
	BusinessId string    `validate:"required"`
	DateFrom   time.Time `validate:"required"`
	DateTo     time.Time `validate:"required,gtefield=DateFrom"`
	DryRun     bool

	// Retry policy for transient infrastructure failures. Zero values fall
	// back to utils.DefaultRetryPolicy.
	Retry utils.RetryPolicy
}

func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return utils.NewImportError(utils.ErrorKindConfig, utils.StageClassify, 0, "", err)
	}
	return nil
}

func (c *RunConfig) retryPolicy() utils.RetryPolicy {
	if c.Retry.MaxAttempts > 0 {
		return c.Retry
	}
	return utils.DefaultRetryPolicy()
}
