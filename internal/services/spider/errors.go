package spider

import (
	"errors"
	"time"
)

// ErrQueueClosed wakes blocked pops when the scheduler shuts down
var ErrQueueClosed = errors.New("queue is closed")

// contentExcludedMessage is recorded on the job and the frontier row
// when a fetched page fails the content filter.
const contentExcludedMessage = "Excluded by content filter"

// stopJoinTimeout bounds how long Stop waits for workers to finish
// their in-flight URL before cancelling their context.
const stopJoinTimeout = 30 * time.Second
