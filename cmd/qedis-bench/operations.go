package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pior/qedis"
)

type operation struct {
	setup  func(ctx context.Context, client *qedis.Client) error
	worker worker
}

const (
	cacheHitKey   = "cache-hit-key"
	cacheHitValue = "cache-hit-value"
	incrementKey  = "increment-key"
	pipelineSize  = 10
)

var operations = map[string]operation{
	// 1 set then 100 get
	"cache-hit": {
		setup: func(ctx context.Context, client *qedis.Client) error {
			return qedis.NewCommands(client).Set(ctx, qedis.Item{Key: cacheHitKey, Value: []byte(cacheHitValue), TTL: time.Hour})
		},
		worker: func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int) {
			cmds := qedis.NewCommands(client)
			for range 100 {
				r.time(func() bool {
					item, err := cmds.Get(ctx, cacheHitKey)
					if err != nil || !item.Found {
						return false
					}
					if string(item.Value) != cacheHitValue {
						r.incorrect("Value mismatch")
					}
					return true
				})
			}
		},
	},

	// 1 set then 1 get
	"dynamic-value": {
		worker: func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int) {
			cmds := qedis.NewCommands(client)
			key := fmt.Sprintf("dynamic-key-%d-%d", workerID, iteration)
			value := fmt.Sprintf("dynamic-value-%d-%d", workerID, iteration)

			ok := r.time(func() bool {
				return cmds.Set(ctx, qedis.Item{Key: key, Value: []byte(value), TTL: time.Hour}) == nil
			})
			if !ok {
				return
			}
			r.time(func() bool {
				item, err := cmds.Get(ctx, key)
				if err != nil {
					return false
				}
				if string(item.Value) != value {
					r.incorrect("Value mismatch")
				}
				return true
			})
		},
	},

	// 1 get on a missing key
	"cache-miss": {
		worker: func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int) {
			cmds := qedis.NewCommands(client)
			key := fmt.Sprintf("nonexistent-key-%d-%d", workerID, iteration)

			r.time(func() bool {
				item, err := cmds.Get(ctx, key)
				if err != nil {
					return false
				}
				if item.Found {
					r.incorrect("Expected cache miss but got value")
					return false
				}
				return true
			})
		},
	},

	// 100 incr then 1 get to check the value
	"increment": {
		setup: func(ctx context.Context, client *qedis.Client) error {
			return qedis.NewCommands(client).Set(ctx, qedis.Item{Key: incrementKey, Value: []byte("0"), TTL: time.Hour})
		},
		worker: func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int) {
			cmds := qedis.NewCommands(client)
			for range 100 {
				r.time(func() bool {
					_, err := cmds.Incr(ctx, incrementKey, 1)
					return err == nil
				})
			}
			r.time(func() bool {
				item, err := cmds.Get(ctx, incrementKey)
				if err != nil || !item.Found {
					return false
				}
				if _, err := strconv.ParseInt(string(item.Value), 10, 64); err != nil {
					r.incorrect("Counter value is not a number")
				}
				return true
			})
		},
	},

	// 1 set then 1 delete
	"delete": {
		worker: func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int) {
			cmds := qedis.NewCommands(client)
			key := fmt.Sprintf("delete-key-%d-%d", workerID, iteration)

			ok := r.time(func() bool {
				return cmds.Set(ctx, qedis.Item{Key: key, Value: []byte(key), TTL: time.Hour}) == nil
			})
			if !ok {
				return
			}
			r.time(func() bool {
				_, err := cmds.Del(ctx, key)
				return err == nil
			})
		},
	},

	// 1 pipelined multi-set then 1 pipelined multi-get
	"pipeline": {
		worker: func(ctx context.Context, r *recorder, client *qedis.Client, workerID, iteration int) {
			batch := qedis.NewBatchCommands(client)

			items := make([]qedis.Item, pipelineSize)
			keys := make([]string, pipelineSize)
			for i := range items {
				keys[i] = fmt.Sprintf("pipeline-key-%d-%d-%d", workerID, iteration, i)
				items[i] = qedis.Item{Key: keys[i], Value: []byte(keys[i]), TTL: time.Hour}
			}

			ok := r.time(func() bool {
				return batch.MultiSet(ctx, items) == nil
			})
			if !ok {
				return
			}
			r.time(func() bool {
				got, err := batch.MultiGet(ctx, keys)
				if err != nil {
					return false
				}
				for i, item := range got {
					if !item.Found || string(item.Value) != keys[i] {
						r.incorrect("Pipeline value mismatch")
					}
				}
				return true
			})
		},
	},
}

func operationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
