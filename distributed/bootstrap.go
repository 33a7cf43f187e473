package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/deepprivacy/pgan/pkg/timeutil"
	"go.uber.org/zap"
)

// State is the result of the bootstrap.
type State struct {
	Distributed bool
	WorldSize   int
	Rank        int
	LocalRank   int
	SessionID   string
	TimeFrame   timeutil.TimeFrame
}

// Bootstrap joins the process group when WORLD_SIZE is greater than one.
// Otherwise it returns a single-process state and a nil group.
// Joining blocks until every peer has rendezvoused; there is no timeout
// unless ctx carries one.
func Bootstrap(ctx context.Context, lg *zap.Logger, env Env, localRank int, binder DeviceBinder, backend Backend) (State, Group, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	start := time.Now()
	st := State{
		Distributed: false,
		WorldSize:   1,
		Rank:        0,
		LocalRank:   localRank,
	}
	if !env.Distributed() {
		st.TimeFrame = timeutil.Since(start)
		lg.Info("single process training", zap.Int("local-rank", localRank))
		return st, nil, nil
	}

	if !env.RankSet {
		env.Rank = localRank
	}
	if env.Rank >= env.WorldSize {
		return State{}, nil, fmt.Errorf("rank %d out of range for world size %d", env.Rank, env.WorldSize)
	}
	lg.Info("enabling distributed training",
		zap.Int("gpus", env.WorldSize),
		zap.Int("rank", env.Rank),
		zap.Int("local-rank", localRank),
		zap.String("master", env.Addr()),
	)

	if binder == nil {
		binder = NoopBinder{}
	}
	if err := binder.Bind(localRank); err != nil {
		return State{}, nil, fmt.Errorf("failed to bind device for local rank %d (%v)", localRank, err)
	}
	if backend == nil {
		backend = NewTCPBackend(lg)
	}
	g, err := backend.InitProcessGroup(ctx, env)
	if err != nil {
		return State{}, nil, fmt.Errorf("failed to init process group (%w)", err)
	}

	st.Distributed = true
	st.WorldSize = g.WorldSize()
	st.Rank = g.Rank()
	st.SessionID = g.SessionID()
	st.TimeFrame = timeutil.Since(start)
	lg.Info("joined process group",
		zap.Int("world-size", st.WorldSize),
		zap.Int("rank", st.Rank),
		zap.String("session-id", st.SessionID),
		zap.String("took", st.TimeFrame.TookString),
	)
	return st, g, nil
}
