// Package httputil provides retry helpers for repository transports.
//
// [Retry] re-runs an operation while it fails with a [RetryableError]:
//
//	err := httputil.Retry(ctx, httputil.DefaultPolicy, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Transports wrap connection failures and 5xx responses as retryable;
// 404/400 responses are final because they mean the repository does not
// have the artifact. A [RetryableError] may carry a server supplied
// Retry-After delay which replaces the backoff delay for that attempt.
package httputil
