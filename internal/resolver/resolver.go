// Package resolver turns logical cloud instance identifiers into reachable
// network addresses. The gcloud provider never needs this (the CLI resolves
// its own targets); the AWS provider resolves an instance id to the
// instance's public address through the EC2 API.
package resolver

import (
	"context"
	"errors"
)

// ErrInstanceNotFound indicates the identifier matched no instance.
var ErrInstanceNotFound = errors.New("resolver: instance not found")

// ErrNoPublicAddress indicates the instance exists but has no public address
// assigned, so there is nothing to ssh to.
var ErrNoPublicAddress = errors.New("resolver: instance has no public address")

// Resolver looks up a connectable address for an instance identifier. All
// failures (service unreachable, instance absent, no address) are treated by
// the supervisor identically to a launch failure: no process is spawned.
type Resolver interface {
	Resolve(ctx context.Context, instanceID string) (string, error)
}
