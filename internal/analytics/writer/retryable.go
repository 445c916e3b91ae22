package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// retryable reports whether every leaf of err is a transient BigQuery failure.
// Row-level errors nest, so the tree is walked until a status-bearing error is found.
func retryable(err error) bool {
	leaves := leafErrors(err)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		if !transient(leaf) {
			return false
		}
	}
	return true
}

func leafErrors(err error) []error {
	if err == nil {
		return nil
	}

	var nested []error
	var (
		multi  cbigquery.MultiError
		put    cbigquery.PutMultiError
		rowErr *cbigquery.RowInsertionError
	)
	switch {
	case errors.As(err, &multi):
		nested = multi
	case errors.As(err, &put):
		for _, row := range put {
			nested = append(nested, row.Errors)
		}
	case errors.As(err, &rowErr) && rowErr != nil:
		nested = rowErr.Errors
	default:
		return []error{err}
	}

	var out []error
	for _, inner := range nested {
		sub := leafErrors(inner)
		if len(sub) == 0 {
			// an empty group carries no status; treat it as permanent
			return []error{err}
		}
		out = append(out, sub...)
	}
	if len(out) == 0 {
		return []error{err}
	}
	return out
}

var transientHTTP = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusRequestTimeout:      true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var transientGRPC = map[codes.Code]bool{
	codes.Aborted:           true,
	codes.DeadlineExceeded:  true,
	codes.Internal:          true,
	codes.ResourceExhausted: true,
	codes.Unavailable:       true,
}

func transient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return transientHTTP[apiErr.Code]
	}
	var withStatus interface{ GRPCStatus() *status.Status }
	if errors.As(err, &withStatus) {
		if st := withStatus.GRPCStatus(); st != nil {
			return transientGRPC[st.Code()]
		}
	}
	return false
}
