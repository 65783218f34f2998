// Package services implements the driving ports.
//
// The answer path runs Retriever, Compressor and Synthesizer in sequence,
// with ConversationManager keeping per-owner history around it.
// IngestionService is the write path into the vector index.
package services
