package main

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/pior/qedis/resp"
)

// formatReply renders a reply the way redis-cli does.
func formatReply(reply any) string {
	var sb strings.Builder
	writeReply(&sb, reply, 0)
	return sb.String()
}

func writeReply(sb *strings.Builder, reply any, indent int) {
	switch v := reply.(type) {
	case nil:
		sb.WriteString("(nil)")
	case string:
		sb.WriteString(strconv.Quote(v))
	case int64:
		fmt.Fprintf(sb, "(integer) %d", v)
	case float64:
		fmt.Fprintf(sb, "(double) %s", strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		fmt.Fprintf(sb, "(%t)", v)
	case *big.Int:
		fmt.Fprintf(sb, "(big number) %s", v.String())
	case *resp.Error:
		fmt.Fprintf(sb, "(error) %s", v.Message)
	case *resp.Push:
		fmt.Fprintf(sb, "(push %s) ", v.Kind)
		writeList(sb, v.Data, indent)
	case []any:
		writeList(sb, v, indent)
	case map[any]any:
		writeMap(sb, v, indent)
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

func writeList(sb *strings.Builder, items []any, indent int) {
	if len(items) == 0 {
		sb.WriteString("(empty array)")
		return
	}
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(" ", indent))
		}
		prefix := fmt.Sprintf("%d) ", i+1)
		sb.WriteString(prefix)
		writeReply(sb, item, indent+len(prefix))
	}
}

func writeMap(sb *strings.Builder, m map[any]any, indent int) {
	if len(m) == 0 {
		sb.WriteString("(empty hash)")
		return
	}

	keys := make([]any, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})

	for i, k := range keys {
		if i > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(" ", indent))
		}
		prefix := fmt.Sprintf("%d# ", i+1)
		sb.WriteString(prefix)
		writeReply(sb, k, indent+len(prefix))
		sb.WriteString(" => ")
		writeReply(sb, m[k], indent+len(prefix))
	}
}
