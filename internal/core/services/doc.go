// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - IndexBuilder: load, chunk, embed and persist the corpus
//   - Retriever: cosine top-k over the loaded index, reloadable
//   - SettingsService: layered configuration and provider selection
//   - BuildHistoryService: read access to past builds
//
// Services depend only on domain and ports, never on concrete adapters.
package services
