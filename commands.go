package qedis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pior/qedis/resp"
)

// NoTTL represents an infinite TTL (no expiration).
const NoTTL = 0

type Item struct {
	Key   string
	Value []byte
	TTL   time.Duration
	Found bool // indicates whether the key exists
}

type Querier interface {
	Ping(ctx context.Context, message string) (string, error)
	Get(ctx context.Context, key string) (Item, error)
	Set(ctx context.Context, item Item) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	HSet(ctx context.Context, key string, fields map[string]string) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Commands provides typed Redis commands over an Executor.
type Commands struct {
	executor Executor
}

var _ Querier = (*Commands)(nil)

// NewCommands creates a new Commands instance with the given executor.
func NewCommands(executor Executor) *Commands {
	return &Commands{
		executor: executor,
	}
}

func (c *Commands) do(ctx context.Context, cmd Command) (any, error) {
	reply, err := c.executor.Do(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if replyErr, ok := reply.(*resp.Error); ok {
		return nil, replyErr
	}
	return reply, nil
}

// Ping sends PING, with message if not empty, and returns the echoed reply.
func (c *Commands) Ping(ctx context.Context, message string) (string, error) {
	cmd := NewCommand("PING")
	if message != "" {
		cmd = NewCommand("PING", message)
	}
	reply, err := c.do(ctx, cmd)
	if err != nil {
		return "", err
	}
	return asString("PING", reply)
}

// Hello switches the connection protocol version (2 or 3) and returns the server properties.
func (c *Commands) Hello(ctx context.Context, protover int) (map[string]any, error) {
	reply, err := c.do(ctx, NewCommand("HELLO", protover))
	if err != nil {
		return nil, err
	}

	props := make(map[string]any)
	err = forEachPair("HELLO", reply, func(k, v any) error {
		key, err := asString("HELLO", k)
		if err != nil {
			return err
		}
		props[key] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return props, nil
}

// Get retrieves a single key. A missing key returns Found=false.
func (c *Commands) Get(ctx context.Context, key string) (Item, error) {
	reply, err := c.do(ctx, NewCommand("GET", key))
	if err != nil {
		return Item{}, err
	}
	return itemFromReply(key, reply)
}

// Set stores an item, with a millisecond expiration if TTL is set.
func (c *Commands) Set(ctx context.Context, item Item) error {
	reply, err := c.do(ctx, setCommand(item))
	if err != nil {
		return err
	}
	return expectOK("SET", reply)
}

// Del removes keys and returns how many existed.
func (c *Commands) Del(ctx context.Context, keys ...string) (int64, error) {
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	reply, err := c.do(ctx, NewCommand("DEL", args...))
	if err != nil {
		return 0, err
	}
	return asInt("DEL", reply)
}

// Incr adds delta to the integer stored at key and returns the new value.
// A missing key counts as 0.
func (c *Commands) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	reply, err := c.do(ctx, NewCommand("INCRBY", key, delta))
	if err != nil {
		return 0, err
	}
	return asInt("INCRBY", reply)
}

// HSet sets hash fields and returns the number of fields that were added.
func (c *Commands) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, 1+2*len(fields))
	args = append(args, key)
	for _, name := range names {
		args = append(args, name, fields[name])
	}

	reply, err := c.do(ctx, NewCommand("HSET", args...))
	if err != nil {
		return 0, err
	}
	return asInt("HSET", reply)
}

// HGetAll returns all fields of a hash. A missing key returns an empty map.
// Both the RESP3 map reply and the RESP2 flat array reply are accepted.
func (c *Commands) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	reply, err := c.do(ctx, NewCommand("HGETALL", key))
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	err = forEachPair("HGETALL", reply, func(k, v any) error {
		name, err := asString("HGETALL", k)
		if err != nil {
			return err
		}
		value, err := asString("HGETALL", v)
		if err != nil {
			return err
		}
		fields[name] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func setCommand(item Item) Command {
	if item.TTL > 0 {
		return NewCommand("SET", item.Key, item.Value, "PX", item.TTL.Milliseconds())
	}
	return NewCommand("SET", item.Key, item.Value)
}

func itemFromReply(key string, reply any) (Item, error) {
	switch v := reply.(type) {
	case nil:
		return Item{Key: key, Found: false}, nil
	case string:
		return Item{Key: key, Value: []byte(v), Found: true}, nil
	default:
		return Item{}, fmt.Errorf("unexpected GET reply for key %s: %T", key, reply)
	}
}

func expectOK(name string, reply any) error {
	if s, ok := reply.(string); !ok || s != "OK" {
		return fmt.Errorf("%s failed with reply: %v", name, reply)
	}
	return nil
}

func asString(name string, reply any) (string, error) {
	s, ok := reply.(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s reply type: %T", name, reply)
	}
	return s, nil
}

func asInt(name string, reply any) (int64, error) {
	n, ok := reply.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected %s reply type: %T", name, reply)
	}
	return n, nil
}

// forEachPair walks a RESP3 map or a RESP2 array of alternating keys and values.
func forEachPair(name string, reply any, fn func(k, v any) error) error {
	switch v := reply.(type) {
	case map[any]any:
		for key, value := range v {
			if err := fn(key, value); err != nil {
				return err
			}
		}
	case []any:
		if len(v)%2 != 0 {
			return fmt.Errorf("unexpected %s reply: odd number of elements (%d)", name, len(v))
		}
		for i := 0; i < len(v); i += 2 {
			if err := fn(v[i], v[i+1]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unexpected %s reply type: %T", name, reply)
	}
	return nil
}
