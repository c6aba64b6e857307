// Package retry holds the eviction decision applied to events after a failed
// delivery attempt. It is stateless so thresholds are testable in isolation;
// both the queue and the uploader consult it.
package retry

// ShouldEvict reports whether an event whose delivery has failed retryCount
// times against a limit of maxRetries must be removed instead of retained.
// An event with maxRetries of zero is evicted on its first failure.
func ShouldEvict(retryCount, maxRetries int) bool {
	return retryCount >= maxRetries
}
