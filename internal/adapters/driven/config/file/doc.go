// Package file provides the TOML-backed ConfigStore.
//
// Keys are addressed in dot notation ("embedding.provider") and are
// written back to disk as TOML tables, so the file stays hand-editable:
//
//	[embedding]
//	provider = "openai"
//	dimensions = 1536
package file
