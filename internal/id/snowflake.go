package id

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	once    sync.Once
	initErr error
)

// DefaultNode is used when New is called before Init.
const DefaultNode = 1

// Init initializes the Snowflake node with the given node ID. Only the first call has an effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New generates a new time-ordered int64 ID using the Snowflake algorithm.
func New() int64 {
	if err := Init(DefaultNode); err != nil {
		panic(err)
	}
	return node.Generate().Int64()
}

// String formats an ID the way it appears in SSE event ids and HTML element ids.
func String(id int64) string {
	return snowflake.ID(id).String()
}

// Time returns the moment the ID was generated.
func Time(id int64) time.Time {
	return time.UnixMilli(snowflake.ID(id).Time())
}
