package qedis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnStatsCollector(t *testing.T) {
	var c connStatsCollector

	c.recordQuery()
	c.recordQuery()
	c.recordPipeline()
	c.recordReply()
	c.recordReset()
	c.recordProtocolError()
	c.recordDroppedChunk()
	c.recordEndedStream()

	assert.Equal(t, ConnStats{
		Queries:        2,
		Pipelines:      1,
		Replies:        1,
		Resets:         1,
		ProtocolErrors: 1,
		DroppedChunks:  1,
		EndedStreams:   1,
		InFlight:       3,
	}, c.snapshot(3))
}

func TestClientStatsCollector(t *testing.T) {
	var c clientStatsCollector

	c.recordCommand()
	c.recordPipeline()
	c.recordError()
	c.recordServerError()
	c.recordServerError()

	assert.Equal(t, ClientStats{
		Commands:     1,
		Pipelines:    1,
		Errors:       1,
		ServerErrors: 2,
	}, c.snapshot())
}
