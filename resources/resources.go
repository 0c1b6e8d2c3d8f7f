// Package resources embeds the default activity definitions.
package resources

import "embed"

//go:embed activities/*.yaml
var ActivityFiles embed.FS
