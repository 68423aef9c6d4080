// Package s3 fetches application descriptors from S3 or any S3-compatible
// object store.
//
// Descriptor references use the form s3://bucket/key. See [ParseURL].
package s3
