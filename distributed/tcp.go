package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultDialInterval is the interval between dial attempts to the master.
const DefaultDialInterval = 500 * time.Millisecond

const (
	msgHello   = "hello"
	msgWelcome = "welcome"
	msgReject  = "reject"
	msgBarrier = "barrier"
	msgRelease = "release"
)

// message is one JSON line on a rendezvous connection.
type message struct {
	Type      string `json:"type"`
	Rank      int    `json:"rank"`
	WorldSize int    `json:"world_size"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TCPBackend implements the "env://" rendezvous over TCP.
// Rank 0 listens on MASTER_ADDR:MASTER_PORT and every other rank dials it.
type TCPBackend struct {
	lg *zap.Logger
	// DialInterval is the interval between dial attempts to the master.
	DialInterval time.Duration
}

// NewTCPBackend returns a new TCP rendezvous backend.
func NewTCPBackend(lg *zap.Logger) *TCPBackend {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &TCPBackend{lg: lg, DialInterval: DefaultDialInterval}
}

// InitProcessGroup joins the group as master (rank 0) or as a peer.
func (b *TCPBackend) InitProcessGroup(ctx context.Context, env Env) (Group, error) {
	if env.WorldSize < 1 {
		return nil, fmt.Errorf("world size %d must be positive", env.WorldSize)
	}
	if env.Rank < 0 || env.Rank >= env.WorldSize {
		return nil, fmt.Errorf("rank %d out of range [0, %d)", env.Rank, env.WorldSize)
	}
	if env.Rank == 0 {
		return b.serve(ctx, env)
	}
	return b.join(ctx, env)
}

type peerConn struct {
	rank int
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func newPeerConn(conn net.Conn) *peerConn {
	return &peerConn{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}
}

func (pc *peerConn) send(m message) error {
	return pc.enc.Encode(m)
}

func (pc *peerConn) recv(expected string) (message, error) {
	var m message
	if err := pc.dec.Decode(&m); err != nil {
		return m, err
	}
	if m.Type == msgReject {
		return m, fmt.Errorf("rejected by master (%s)", m.Error)
	}
	if m.Type != expected {
		return m, fmt.Errorf("expected %q message, got %q", expected, m.Type)
	}
	return m, nil
}

func (pc *peerConn) reject(err error) {
	pc.send(message{Type: msgReject, Rank: pc.rank, Error: err.Error()})
	pc.conn.Close()
}

type handshake struct {
	pc  *peerConn
	msg message
	err error
}

func (b *TCPBackend) serve(ctx context.Context, env Env) (*tcpGroup, error) {
	ln, err := net.Listen("tcp", env.Addr())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", env.Addr())
	}
	defer ln.Close()
	b.lg.Info("waiting for peers",
		zap.String("listen", ln.Addr().String()),
		zap.Int("peers", env.WorldSize-1),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	hctx, cancel := context.WithCancel(egCtx)
	defer cancel()

	hellos := make(chan handshake)
	eg.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if hctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "failed to accept")
			}
			eg.Go(func() error {
				pc := newPeerConn(conn)
				stop := context.AfterFunc(hctx, func() { conn.SetReadDeadline(time.Now()) })
				var m message
				err := pc.dec.Decode(&m)
				stop()
				select {
				case hellos <- handshake{pc: pc, msg: m, err: err}:
				case <-hctx.Done():
					conn.Close()
				}
				return nil
			})
		}
	})

	peers := make([]*peerConn, env.WorldSize)
	closePeers := func() {
		for _, pc := range peers {
			if pc != nil {
				pc.conn.Close()
			}
		}
	}
	joined, done := 0, false
	for joined < env.WorldSize-1 && !done {
		select {
		case <-hctx.Done():
			done = true
		case h := <-hellos:
			if aerr := admit(env, peers, h); aerr != nil {
				b.lg.Warn("rejected peer", zap.String("remote", h.pc.conn.RemoteAddr().String()), zap.Error(aerr))
				h.pc.reject(aerr)
				continue
			}
			joined++
			b.lg.Info("peer joined",
				zap.Int("rank", h.msg.Rank),
				zap.Int("joined", joined),
				zap.Int("waiting", env.WorldSize-1-joined),
			)
		}
	}
	cancel()
	ln.Close()
	werr := eg.Wait()
	if joined < env.WorldSize-1 {
		closePeers()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if werr != nil {
			return nil, werr
		}
		return nil, errors.New("rendezvous stopped before every peer joined")
	}

	sessionID := uuid.NewString()
	var release errgroup.Group
	for _, pc := range peers[1:] {
		release.Go(func() error {
			return errors.Wrapf(pc.send(message{Type: msgWelcome, Rank: pc.rank, WorldSize: env.WorldSize, SessionID: sessionID}), "failed to release rank %d", pc.rank)
		})
	}
	if err = release.Wait(); err != nil {
		closePeers()
		return nil, err
	}
	b.lg.Info("released peers", zap.String("session-id", sessionID), zap.Int("world-size", env.WorldSize))
	return &tcpGroup{rank: 0, worldSize: env.WorldSize, sessionID: sessionID, peers: peers[1:]}, nil
}

// admit validates the hello of a peer and records its connection.
func admit(env Env, peers []*peerConn, h handshake) error {
	if h.err != nil {
		return errors.Wrap(h.err, "failed to read hello")
	}
	m := h.msg
	switch {
	case m.Type != msgHello:
		return fmt.Errorf("expected %q message, got %q", msgHello, m.Type)
	case m.WorldSize != env.WorldSize:
		return fmt.Errorf("world size mismatch (peer %d, master %d)", m.WorldSize, env.WorldSize)
	case m.Rank < 1 || m.Rank >= env.WorldSize:
		return fmt.Errorf("rank %d out of range [1, %d)", m.Rank, env.WorldSize)
	case peers[m.Rank] != nil:
		return fmt.Errorf("duplicate rank %d", m.Rank)
	}
	h.pc.rank = m.Rank
	peers[m.Rank] = h.pc
	return nil
}

func (b *TCPBackend) join(ctx context.Context, env Env) (*tcpGroup, error) {
	addr := env.Addr()
	interval := b.DialInterval
	if interval <= 0 {
		interval = DefaultDialInterval
	}

	var conn net.Conn
	var d net.Dialer
	err := wait.PollUntilContextCancel(ctx, interval, true, func(ctx context.Context) (bool, error) {
		c, derr := d.DialContext(ctx, "tcp", addr)
		if derr != nil {
			b.lg.Debug("master not ready; retrying", zap.String("master", addr), zap.Error(derr))
			return false, nil
		}
		conn = c
		return true, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial master %s", addr)
	}

	pc := newPeerConn(conn)
	pc.rank = env.Rank
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err = pc.send(message{Type: msgHello, Rank: env.Rank, WorldSize: env.WorldSize}); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to send hello")
	}
	b.lg.Info("waiting for master", zap.String("master", addr), zap.Int("rank", env.Rank))
	m, err := pc.recv(msgWelcome)
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(err, "rank %d failed to join", env.Rank)
	}
	if m.WorldSize != env.WorldSize {
		conn.Close()
		return nil, fmt.Errorf("world size mismatch (master %d, local %d)", m.WorldSize, env.WorldSize)
	}
	return &tcpGroup{rank: env.Rank, worldSize: m.WorldSize, sessionID: m.SessionID, master: pc}, nil
}

// tcpGroup holds the rendezvous connections: every peer on the master,
// the master connection on a peer.
type tcpGroup struct {
	rank      int
	worldSize int
	sessionID string

	peers  []*peerConn
	master *peerConn
}

func (g *tcpGroup) Rank() int         { return g.rank }
func (g *tcpGroup) WorldSize() int    { return g.worldSize }
func (g *tcpGroup) SessionID() string { return g.sessionID }

func (g *tcpGroup) conns() []*peerConn {
	if g.master != nil {
		return []*peerConn{g.master}
	}
	return g.peers
}

// Barrier blocks until every member called Barrier.
func (g *tcpGroup) Barrier(ctx context.Context) error {
	conns := g.conns()
	stop := context.AfterFunc(ctx, func() {
		for _, pc := range conns {
			pc.conn.SetDeadline(time.Now())
		}
	})
	defer stop()

	err := g.barrier()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (g *tcpGroup) barrier() error {
	if g.master != nil {
		if err := g.master.send(message{Type: msgBarrier, Rank: g.rank}); err != nil {
			return errors.Wrap(err, "failed to send barrier")
		}
		_, err := g.master.recv(msgRelease)
		return errors.Wrap(err, "failed to wait for barrier release")
	}

	var arrive errgroup.Group
	for _, pc := range g.peers {
		arrive.Go(func() error {
			_, err := pc.recv(msgBarrier)
			return errors.Wrapf(err, "rank %d failed to reach barrier", pc.rank)
		})
	}
	if err := arrive.Wait(); err != nil {
		return err
	}
	var release errgroup.Group
	for _, pc := range g.peers {
		release.Go(func() error {
			return errors.Wrapf(pc.send(message{Type: msgRelease}), "failed to release rank %d", pc.rank)
		})
	}
	return release.Wait()
}

// Close closes the rendezvous connections.
func (g *tcpGroup) Close() error {
	var err error
	for _, pc := range g.conns() {
		if cerr := pc.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
