package model

import "strings"

// StoryHash builds the "<feed_id>:<guid_hash>" identifier (spec §3).
func StoryHash(feedID, guidHash string) string {
	return feedID + ":" + guidHash
}

// StoryHashFeedID extracts the feed_id prefix from a story hash.
func StoryHashFeedID(hash string) string {
	if i := strings.IndexByte(hash, ':'); i >= 0 {
		return hash[:i]
	}
	return hash
}

// StoryHashGUID extracts the guid_hash suffix from a story hash.
func StoryHashGUID(hash string) string {
	if i := strings.IndexByte(hash, ':'); i >= 0 {
		return hash[i+1:]
	}
	return ""
}
