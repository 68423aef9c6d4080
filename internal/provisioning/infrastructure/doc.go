// Package infrastructure manages the per-project network scaffold: a
// subnet carved from the account network, its ACL, and its route table
// association. Every environment of a project launches into the scaffold.
package infrastructure
