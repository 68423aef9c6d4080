// Package netutil provides IPv4 subnet arithmetic for carving project
// subnets out of the account network.
package netutil
