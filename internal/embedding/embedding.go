// Package embedding maps task text to fixed-dimension vectors. The vector
// length is discovered from the first embedding ever produced, not
// configured; it must not change within one process lifetime.
package embedding

import "context"

// Embedder generates a vector embedding for a piece of text. Repeated calls
// on identical text must be stable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
