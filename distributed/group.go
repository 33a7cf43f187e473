package distributed

import "context"

// DeviceBinder binds the current process to the accelerator of its local rank.
type DeviceBinder interface {
	Bind(localRank int) error
}

// Backend joins the processes of one run into a group.
type Backend interface {
	// InitProcessGroup blocks until every process of the world has joined
	// or ctx is done.
	InitProcessGroup(ctx context.Context, env Env) (Group, error)
}

// Group is a joined process group.
type Group interface {
	Rank() int
	WorldSize() int
	// SessionID is shared by every member of the group.
	SessionID() string
	// Barrier blocks until every member reached it.
	Barrier(ctx context.Context) error
	Close() error
}
