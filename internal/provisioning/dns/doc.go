// Package dns binds an environment's subdomain to its load balancer.
package dns
