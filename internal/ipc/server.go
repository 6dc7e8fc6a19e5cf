package ipc

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	msgpack "github.com/hashicorp/go-msgpack/codec"
	"github.com/hashicorp/yamux"

	"github.com/legatoproject/go-supervisor/internal/supervisor"
	"github.com/legatoproject/go-supervisor/internal/watchdog"
)

var mh msgpack.MsgpackHandle

// pendingStop is the cmd_ref supervisor.Stop hands back to Responder once
// the application it targets reaches STOPPED — possibly long after the
// request stream that created it has nothing left to read.
type pendingStop struct {
	stream net.Conn
	enc    *msgpack.Encoder
}

func (p *pendingStop) respond(resp Response) {
	_ = p.enc.Encode(&resp)
	_ = p.stream.Close()
}

// Responder implements supervisor.StopCmdResponder by writing the deferred
// OK response on the stream that issued the original stop request.
type Responder struct{}

func NewResponder() *Responder { return &Responder{} }

func (r *Responder) RespondOK(cmd interface{}) {
	if pc, ok := cmd.(*pendingStop); ok {
		pc.respond(Response{OK: true})
	}
}

// Server accepts yamux-multiplexed Unix socket connections, decodes one
// msgpack Request per stream, and runs it against the supervisor on a
// single dispatch goroutine so internal/supervisor never needs locks.
type Server struct {
	sup       *supervisor.Supervisor
	hasher    supervisor.HashReader
	watchdogs *watchdog.Timers
	logger    hclog.Logger
	listener  net.Listener
	cmds      chan func()
}

// NewServer builds a Server. hasher resolves get_app_hash requests.
// watchdogs may be nil, in which case watchdog_kick requests are rejected.
func NewServer(sup *supervisor.Supervisor, hasher supervisor.HashReader, watchdogs *watchdog.Timers, logger hclog.Logger) *Server {
	return &Server{
		sup:       sup,
		hasher:    hasher,
		watchdogs: watchdogs,
		logger:    logger.Named("ipc"),
		cmds:      make(chan func(), 64),
	}
}

// Submit runs fn on the server's single dispatch goroutine, blocking
// until it completes. Exposed so the daemon's OS signal loop (SIGCHLD
// reaping, watchdog expiry) serializes through the same goroutine as
// every IPC-originated call.
func (s *Server) Submit(fn func()) { s.submit(fn) }

// Listen binds the Unix socket at path, removing any stale socket file
// left behind by a previous run.
func (s *Server) Listen(path string) error {
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Run accepts connections until ctx is cancelled or Accept fails.
func (s *Server) Run(ctx context.Context) error {
	go s.dispatchLoop(ctx)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.cmds:
			fn()
		}
	}
}

// submit runs fn on the dispatch goroutine and blocks until it finishes.
// Every call into internal/supervisor goes through here.
func (s *Server) submit(fn func()) {
	done := make(chan struct{})
	s.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	sessionID := uuid.NewString()
	sess, err := yamux.Server(conn, yamux.DefaultConfig())
	if err != nil {
		s.logger.Warn("yamux handshake failed", "error", err)
		_ = conn.Close()
		return
	}
	defer func() {
		_ = sess.Close()
		s.submit(func() { s.sup.Adhoc().DestroySession(sessionID) })
	}()

	for {
		stream, err := sess.AcceptStream()
		if err != nil {
			return
		}
		go s.handleStream(stream, sessionID)
	}
}

func (s *Server) handleStream(stream net.Conn, sessionID string) {
	dec := msgpack.NewDecoder(stream, &mh)
	var req Request
	if err := dec.Decode(&req); err != nil {
		_ = stream.Close()
		return
	}
	enc := msgpack.NewEncoder(stream, &mh)

	switch req.Op {
	case OpLaunch:
		var resp Response
		s.submit(func() {
			if err := s.sup.Launch(req.App); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpStop:
		pc := &pendingStop{stream: stream, enc: enc}
		var immediate *Response
		s.submit(func() {
			if err := s.sup.Stop(req.App, pc); err != nil {
				r := errResp(err)
				immediate = &r
			}
		})
		if immediate != nil {
			writeAndClose(stream, enc, *immediate)
		}
		// Otherwise Responder.RespondOK writes the reply later, once the
		// application actually reaches STOPPED.

	case OpQueryAppState:
		var resp Response
		s.submit(func() { resp = Response{OK: true, Value: s.sup.QueryAppState(req.App).String()} })
		writeAndClose(stream, enc, resp)

	case OpQueryProcState:
		var resp Response
		s.submit(func() { resp = Response{OK: true, Value: s.sup.QueryProcState(req.App, req.Proc).String()} })
		writeAndClose(stream, enc, resp)

	case OpResolveAppByPID:
		var resp Response
		s.submit(func() {
			name, err := s.sup.ResolveAppNameByPID(req.PID)
			if err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true, Value: name}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpGetAppHash:
		var resp Response
		s.submit(func() {
			hash, err := s.sup.GetAppHash(req.App, s.hasher)
			if err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true, Value: hash}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocCreate:
		var resp Response
		s.submit(func() {
			h, err := s.sup.Adhoc().Create(req.App, req.Proc, req.ExecPath, sessionID)
			if err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true, Handle: h.ID()}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocStart:
		var resp Response
		s.submit(func() {
			if err := s.sup.Adhoc().Start(req.Handle); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocDelete:
		var resp Response
		s.submit(func() {
			if err := s.sup.Adhoc().Delete(req.Handle); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocSetPriority:
		var resp Response
		s.submit(func() {
			if err := s.sup.Adhoc().SetPriority(req.Handle, req.Priority); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocSetFault:
		var resp Response
		s.submit(func() {
			if err := s.sup.Adhoc().SetFaultAction(req.Handle, supervisor.FaultAction(req.Fault)); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocAddArg:
		var resp Response
		s.submit(func() {
			if err := s.sup.Adhoc().AddArg(req.Handle, req.Arg); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocClearArgs:
		var resp Response
		s.submit(func() {
			if err := s.sup.Adhoc().ClearArgs(req.Handle); err != nil {
				resp = errResp(err)
			} else {
				resp = Response{OK: true}
			}
		})
		writeAndClose(stream, enc, resp)

	case OpAdhocAddStopHandler:
		// The ack (handler ref) is synchronous; the stream is then left
		// open so AdhocFacility.NotifyExit can deliver a second, deferred
		// message through this same pendingStop once the watched process
		// actually reaches STOPPED.
		pc := &pendingStop{stream: stream, enc: enc}
		var resp Response
		var failed bool
		s.submit(func() {
			ref, err := s.sup.Adhoc().AddStopHandler(req.Handle, pc)
			if err != nil {
				resp = errResp(err)
				failed = true
				return
			}
			resp = Response{OK: true, Handle: ref}
		})
		if failed {
			writeAndClose(stream, enc, resp)
		} else {
			_ = enc.Encode(&resp)
		}

	case OpWatchdogKick:
		if s.watchdogs == nil {
			writeAndClose(stream, enc, Response{OK: false, Error: "watchdog not configured"})
			break
		}
		s.watchdogs.Kick(req.PID, time.Duration(req.TimeoutNS))
		writeAndClose(stream, enc, Response{OK: true})

	default:
		writeAndClose(stream, enc, Response{OK: false, Error: "unknown operation"})
	}
}

func writeAndClose(stream net.Conn, enc *msgpack.Encoder, resp Response) {
	_ = enc.Encode(&resp)
	_ = stream.Close()
}

func errResp(err error) Response {
	return Response{OK: false, Error: err.Error()}
}

var _ supervisor.StopCmdResponder = (*Responder)(nil)
