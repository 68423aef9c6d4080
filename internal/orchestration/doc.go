// Package orchestration sequences environment lifecycles over the
// provisioning managers.
//
// Bootstrap discovers the account network and DNS zone once and builds
// the managers bound to them. Orchestrator drives create, update, and
// destroy for deployments and pull request environments, deriving each
// environment's state from the provider's tags on every call. Reaper
// destroys pull request environments whose expiry has passed.
package orchestration
