// Package assets embeds the system instruction and the chat page.
package assets

import "embed"

//go:embed system_instruction.md
var SystemInstruction string

//go:embed chat.html
var Dir embed.FS
