// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] starts every task at once, waits for all of them, and
// joins their errors. Provisioning uses it to overlap independent
// provider calls within a single step.
package async
