// Package retry provides exponential backoff retry logic for transient
// provider failures.
//
// [WithExponentialBackoff] retries an operation until it succeeds, the
// attempt budget runs out, the context is cancelled, or the error is
// classified as permanent by [Fatal] or a [WithRetryIf] predicate.
package retry
