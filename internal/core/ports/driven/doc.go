// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into fixed-length vectors
//   - LLMService: Text generation for compression and synthesis
//   - VectorIndex: Namespaced similarity search with role filtering
//   - DocumentStore: DocumentRecord persistence
//   - ConversationStore: Conversation persistence with owner-scoped lookups
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PromptStore: Custom prompt templates. Built-in defaults otherwise.
//   - TokenCounter: Token accounting for answer metadata.
//   - Normaliser / Fetcher: Needed only for file and URL ingestion.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
