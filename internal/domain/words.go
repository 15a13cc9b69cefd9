package domain

// WordCount is a single word with an associated count. Depending on context it
// is either an absolute count (snapshots) or an increment (delta batches).
type WordCount struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

// RoomUpdate is the message published on a topic's broadcast channel. Words
// carries one comment's contribution as (word, increment) pairs.
type RoomUpdate struct {
	Words []WordCount `json:"words"`
}
