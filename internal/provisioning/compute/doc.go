// Package compute provisions the compute half of an environment stack:
// security group, cluster, backing instances, load balancer, and the
// task/service running the application.
//
// Creation, update, and destruction are each expressed as an ordered list
// of provisioning.Step values run by provisioning.RunSteps. Creation steps
// are all mandatory. Destruction treats container and instance teardown as
// mandatory and everything after it as best-effort.
package compute
