// Package domain defines the core business entities for bpa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRecord: One ingested source and its chunk count
//   - Chunk: A window of source text prepared for embedding
//   - Fragment: A chunk returned by similarity search
//   - Conversation: An owned, ordered exchange of Messages
//   - Answer: The structured result of the answer pipeline
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
