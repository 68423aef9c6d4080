// Package aws implements the provisioning provider interfaces on Amazon
// Web Services.
//
// Networks, subnets, ACLs, security groups, and instances are EC2
// resources. Clusters, container instances, task definitions, and services
// are ECS resources. Environments are fronted by classic load balancers
// and bound to names in a Route 53 hosted zone.
//
// Every resource is tagged so that it can be rediscovered by tag alone.
// Provider errors are mapped onto provisioning.ErrNotFound and
// provisioning.ErrAlreadyExists; see errors.go.
package aws
