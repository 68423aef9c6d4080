// Package naming derives deterministic resource identifiers.
//
// The central function is RID, which maps a (project, environment,
// revision) tuple to a short, human-readable, DNS-safe name. The same
// tuple always yields the same name, and distinct tuples yield distinct
// names, so the name doubles as the lookup key for every resource that
// belongs to the environment.
package naming
