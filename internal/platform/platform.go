// Package platform declares the contracts the host forum engine
// implements for the points core. Implementations live in the embedding
// application; tests use fakes.
package platform

import "context"

// Post is the post metadata income events need.
type Post struct {
	Pid       int64
	Tid       int64
	Fid       int64
	AuthorUid int64
	AuthorGid int64
	Message   string
}

// Thread is the thread metadata income events need.
type Thread struct {
	Tid       int64
	Fid       int64
	AuthorUid int64
	AuthorGid int64
	FirstPost int64
}

// Reader resolves posts and threads from the host platform.
type Reader interface {
	Post(ctx context.Context, pid int64) (*Post, error)
	Thread(ctx context.Context, tid int64) (*Thread, error)
}

// Messenger delivers a best-effort notification. A false return means the
// message was not sent; callers never treat that as a failure of the
// action that triggered it.
type Messenger interface {
	SendMessage(ctx context.Context, toUid int64, subject, body string) bool
}
