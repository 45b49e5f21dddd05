package qedis

import (
	"context"
	"fmt"

	"github.com/pior/qedis/resp"
)

// BatchCommands provides pipelined operations over a BatchExecutor.
// Each call is one pipeline on one stream.
type BatchCommands struct {
	executor BatchExecutor
}

// NewBatchCommands creates a new BatchCommands instance.
func NewBatchCommands(executor BatchExecutor) *BatchCommands {
	return &BatchCommands{
		executor: executor,
	}
}

// MultiGet retrieves multiple keys in one pipeline.
// Returns items in the same order as the keys, with Found=false for missing keys.
func (b *BatchCommands) MultiGet(ctx context.Context, keys []string) ([]Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]Command, len(keys))
	for i, key := range keys {
		cmds[i] = NewCommand("GET", key)
	}

	replies, err := b.executor.DoPipeline(ctx, cmds)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(keys))
	for i, reply := range replies {
		if replyErr, ok := reply.(*resp.Error); ok {
			return nil, fmt.Errorf("GET %s: %w", keys[i], replyErr)
		}
		item, err := itemFromReply(keys[i], reply)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}

	return items, nil
}

// MultiSet stores multiple items in one pipeline.
// Returns the error of the first failed item.
func (b *BatchCommands) MultiSet(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]Command, len(items))
	for i, item := range items {
		cmds[i] = setCommand(item)
	}

	replies, err := b.executor.DoPipeline(ctx, cmds)
	if err != nil {
		return err
	}

	for i, reply := range replies {
		if replyErr, ok := reply.(*resp.Error); ok {
			return fmt.Errorf("SET %s: %w", items[i].Key, replyErr)
		}
		if err := expectOK("SET", reply); err != nil {
			return fmt.Errorf("key %s: %w", items[i].Key, err)
		}
	}

	return nil
}

// MultiDelete removes multiple keys in one pipeline and returns how many existed.
func (b *BatchCommands) MultiDelete(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	cmds := make([]Command, len(keys))
	for i, key := range keys {
		cmds[i] = NewCommand("DEL", key)
	}

	replies, err := b.executor.DoPipeline(ctx, cmds)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for i, reply := range replies {
		if replyErr, ok := reply.(*resp.Error); ok {
			return 0, fmt.Errorf("DEL %s: %w", keys[i], replyErr)
		}
		n, err := asInt("DEL", reply)
		if err != nil {
			return 0, err
		}
		deleted += n
	}

	return deleted, nil
}
