package port

import "context"

// Analyzer is the opaque downstream collaborator that turns a frame sequence
// into a text description. The sampling engine knows nothing about its
// transport or response shape beyond this signature.
type Analyzer interface {
	Describe(ctx context.Context, framePaths []string) (string, error)
}
