// Package transport adapts concrete chat networks to the routing core in
// internal/chat. Each transport is a registered service that embeds a
// *chat.Chat: Init establishes the network session, feeds decoded inbound
// traffic to ResendMessage, and marks the join gate ready once per session.
// The embedded Chat supplies the whole send path, so every outbound message
// crosses the attached policies before the network sees it.
package transport

import "strings"

// splitMessage splits a message into chunks that fit within the max length,
// preferring newline boundaries in the second half of a chunk.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}
		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
