package transcript

type dedupeKey struct {
	content string
	role    string
	millis  int64
}

// Deduplicate keeps the first occurrence of every (content, role, timestamp-ms)
// triple. Streaming and persisted history can both deliver the same message.
func Deduplicate(messages []DisplayMessage) []DisplayMessage {
	seen := make(map[dedupeKey]struct{}, len(messages))
	out := make([]DisplayMessage, 0, len(messages))
	for _, msg := range messages {
		key := dedupeKey{
			content: msg.Content,
			role:    msg.Role,
			millis:  msg.Timestamp.UnixMilli(),
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, msg)
	}
	return out
}
