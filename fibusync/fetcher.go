package fibusync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FetchResult summarizes one fetch step.
type FetchResult struct {
	Fetched  int
	Rejected []RejectedRecord
}

// RejectedRecord is a payload the API returned but the fetcher could not
// cache. Rejections do not stop the fetch.
type RejectedRecord struct {
	Payload json.RawMessage
	Err     error
}

// FetchMutations pulls every mutation in [dateFrom, dateTo] from the Fibu API
// into the mutation cache. The business scope comes from the context. Page
// fetches are retried with bounded backoff on transient failures; a storage
// error is fatal to the fetch step but leaves previously cached records
// intact.
func FetchMutations(ctx context.Context, db *gorm.DB, logger *logrus.Logger, client *Client, dateFrom time.Time, dateTo time.Time) (*FetchResult, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.NewImportError(utils.ErrorKindConfig, utils.StageFetch, 0, "",
			errors.New("no business id in context"))
	}

	result := &FetchResult{}
	from := dateFrom.Format("2006-01-02")
	to := dateTo.Format("2006-01-02")
	cursor := ""
	policy := utils.DefaultRetryPolicy()

	for {
		var items []json.RawMessage
		var nextCursor string
		var hasMore bool

		err := utils.WithRetry(ctx, policy, func() error {
			var pageErr error
			items, nextCursor, hasMore, pageErr = client.ListMutations(ctx, from, to, cursor)
			if pageErr == nil {
				return nil
			}
			kind := utils.ErrorKindTransient
			if apiErr, ok := pageErr.(*APIError); ok && !apiErr.Transient() {
				kind = utils.ErrorKindValidation
			}
			return utils.NewImportError(kind, utils.StageFetch, 0, "", pageErr)
		})
		if err != nil {
			config.LogError(logger, "fetcher.go", "FetchMutations", "ListMutations", map[string]string{"from": from, "to": to, "cursor": cursor}, err)
			return result, err
		}

		for _, raw := range items {
			mutation, decodeErr := DecodeMutation(businessId, raw)
			if decodeErr != nil {
				config.LogError(logger, "fetcher.go", "FetchMutations", "DecodeMutation", string(raw), decodeErr)
				result.Rejected = append(result.Rejected, RejectedRecord{Payload: raw, Err: decodeErr})
				continue
			}
			if putErr := models.PutMutation(db, mutation); putErr != nil {
				config.LogError(logger, "fetcher.go", "FetchMutations", "PutMutation", mutation.ExternalId, putErr)
				return result, utils.NewImportError(utils.ErrorKindTransient, utils.StageFetch, mutation.ExternalId, string(mutation.Type), putErr)
			}
			result.Fetched++
		}

		if !hasMore || nextCursor == "" {
			return result, nil
		}
		cursor = nextCursor
	}
}
