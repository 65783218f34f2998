// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.bpa.
//
// Adapters:
//   - ConfigStore: TOML settings in config.toml
//   - PromptStore: editable prompt templates in prompts/
//   - LoadEnvFiles: .env.local and .env API key files
package file
