// Package provisioning provides shared types, interfaces, and the step
// runner for environment stack provisioning.
//
// # Subpackages
//
//   - infrastructure/: per-project network scaffold (subnet, ACL, route table)
//   - compute/: security group, cluster, instances, load balancer, task
//   - dns/: subdomain binding for an environment's load balancer
//
// # Core Types
//
// Environment identifies a deployment or pull request environment and
// derives its stack name and tags. StackRequest is the accumulator threaded
// through creation steps. Step and RunSteps apply a mandatory or best-effort
// failure policy per step. Provider is the set of collaborator interfaces a
// cloud adapter implements.
package provisioning
