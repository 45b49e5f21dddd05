package qedis

import (
	"fmt"
	"strings"

	"github.com/pior/qedis/resp"
)

// Command is a Redis command: the command name followed by its arguments.
// Each argument is a scalar: string, []byte, an integer type, float32 or float64.
//
// A Command is immutable once constructed.
type Command struct {
	args []any
}

// NewCommand builds a command from its name and arguments.
// The argument slice is copied; []byte arguments are not.
func NewCommand(name string, args ...any) Command {
	all := make([]any, 0, len(args)+1)
	all = append(all, name)
	all = append(all, args...)
	return Command{args: all}
}

// Name returns the command name, e.g. "GET".
func (c Command) Name() string {
	if len(c.args) == 0 {
		return ""
	}
	name, _ := c.args[0].(string)
	return name
}

// Args returns a copy of all arguments, including the command name.
func (c Command) Args() []any {
	return append([]any(nil), c.args...)
}

// AppendTo serializes the command in RESP and appends it to dst.
func (c Command) AppendTo(dst []byte) ([]byte, error) {
	return resp.AppendCommand(dst, c.args...)
}

// String renders the command for logs, redis-cli style: the name as is and
// string arguments quoted.
func (c Command) String() string {
	var sb strings.Builder
	for i, arg := range c.args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch v := arg.(type) {
		case string:
			if i == 0 {
				sb.WriteString(v)
				continue
			}
			fmt.Fprintf(&sb, "%q", v)
		case []byte:
			fmt.Fprintf(&sb, "%q", v)
		default:
			fmt.Fprint(&sb, v)
		}
	}
	return sb.String()
}

// encodeCommands serializes commands back-to-back in a single buffer.
func encodeCommands(cmds []Command) ([]byte, error) {
	var buf []byte
	for i, cmd := range cmds {
		var err error
		buf, err = cmd.AppendTo(buf)
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, cmd.Name(), err)
		}
	}
	return buf, nil
}
