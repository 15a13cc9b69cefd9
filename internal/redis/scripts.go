package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Shyamsaitejamandibi/votii/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// applyDeltasScript atomically folds one delta batch into a topic's ranked set
// and bumps the global served-requests counter. Folding the whole batch in one
// script keeps a comment's contribution atomic with respect to concurrent
// snapshot reads.
// KEYS: [1]=ranked set, [2]=served-requests counter
// ARGV: word, increment pairs
var applyDeltasScript = goredis.NewScript(`
for i = 1, #ARGV, 2 do
  redis.call('ZINCRBY', KEYS[1], ARGV[i+1], ARGV[i])
end
redis.call('INCR', KEYS[2])
return #ARGV / 2
`)

// ScriptRunner executes Lua scripts on Redis for atomic operations.
type ScriptRunner struct {
	rdb *goredis.Client
}

// NewScriptRunner creates a new ScriptRunner.
func NewScriptRunner(client *Client) *ScriptRunner {
	return &ScriptRunner{rdb: client.rdb}
}

// ApplyDeltas applies one delta batch to the topic's ranked set. Returns the
// number of words applied.
func (sr *ScriptRunner) ApplyDeltas(ctx context.Context, topic string, words []domain.WordCount) (int64, error) {
	args := make([]any, 0, len(words)*2)
	for _, w := range words {
		args = append(args, w.Text, strconv.FormatInt(w.Value, 10))
	}

	keys := []string{domain.RoomChannel(topic), servedRequestsKey}
	result, err := applyDeltasScript.Run(ctx, sr.rdb, keys, args...).Int64()
	if err != nil {
		return 0, fmt.Errorf("apply deltas script failed: %w", err)
	}
	return result, nil
}
