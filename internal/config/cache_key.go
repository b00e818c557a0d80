package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamStatusChannel returns the Redis PubSub channel carrying committed status
// changes for one exam (consumed by the student WebSocket stream).
func (r *CacheKeyStruct) ExamStatusChannel(examID string) string {
	return fmt.Sprintf("exam:%s:status", examID)
}

// SessionMonitorChannel returns the Redis PubSub channel for a proctoring
// session's live monitor (consumed by the proctor SSE endpoint).
func (r *CacheKeyStruct) SessionMonitorChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:monitor", sessionID)
}

var CacheKey = NewCacheKeyStruct()
