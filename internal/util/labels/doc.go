// Package labels provides consistent tagging for cloud resources.
//
// Every resource belonging to an environment carries the same tag set:
// managing tool, project, environment type and name, the stack name, and
// optionally the revision and expiry. The provider's tag index is the only
// record of which resources belong together, so discovery and cleanup rely
// entirely on these keys.
package labels
