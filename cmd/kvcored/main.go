// Command kvcored wires the reactor, keyspace, and transaction packages
// into a minimal listening process. It is a demonstration harness, not a
// server: it speaks a trivial whitespace-delimited line protocol instead
// of RESP, and persistence is a stub that logs instead of writing to
// disk. Wire framing and on-disk durability are both out of scope for
// this engine; a real host supplies both around this core.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joeycumines/kvcore/keyspace"
	"github.com/joeycumines/kvcore/reactor"
	"github.com/joeycumines/kvcore/txn"
	"github.com/joeycumines/logiface"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6400", "listen address")
	setsize := flag.Int("setsize", 1024, "reactor file-descriptor capacity")
	structuredLog := flag.Bool("structured-log", false, "emit reactor logs through logiface instead of the line-oriented default logger")
	flag.Parse()

	r, err := reactor.New(*setsize)
	if err != nil {
		log.Fatalf("reactor.New: %v", err)
	}
	if *structuredLog {
		r.SetLogger(reactor.NewLogifaceLogger(reactor.LogifaceWriterFunc(writeLogifaceEvent), logiface.LevelInformational))
	} else {
		r.SetLogger(reactor.NewDefaultLogger(reactor.LevelInfo))
	}
	defer r.Destroy()

	ks := keyspace.New()
	r.SetBeforeSleep(ks.PersistenceHook(func(dirtyOps int) {
		log.Printf("persistence hook: %d mutation(s) since last sync", dirtyOps)
	}))

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	log.Printf("listening on %s (poller: %s)", *addr, r.PollerName())

	accepted := make(chan *net.TCPConn, 64)
	srv := &server{reactor: r, ks: ks, sessions: map[net.Conn]*session{}}
	go acceptLoop(ln, accepted)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Accept runs on its own goroutine (net.Listener.Accept blocks), but
	// every RegisterFile call and every touch of srv.sessions must happen
	// on the reactor's own goroutine. A recurring timer drains the
	// channel there instead of calling into the reactor from acceptLoop,
	// and picks up shutdown signals the same way so Stop also runs there.
	r.CreateTimeEvent(10, func(r *reactor.Reactor, id int64, handle any) int64 {
		for {
			select {
			case conn := <-accepted:
				srv.register(r, conn)
			case <-sig:
				r.Stop()
				return 10
			default:
				return 10
			}
		}
	}, nil, nil)

	if err := r.RunMain(); err != nil {
		log.Fatalf("reactor.RunMain: %v", err)
	}
}

type session struct {
	conn *net.TCPConn
	txn  *txn.Session
	out  *bufio.Writer
}

type server struct {
	reactor  *reactor.Reactor
	ks       *keyspace.Keyspace
	sessions map[net.Conn]*session
}

// acceptLoop bridges net.Listener's blocking Accept into the reactor
// goroutine via a channel; it never touches reactor or server state
// directly.
func acceptLoop(ln net.Listener, out chan<- *net.TCPConn) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		tc, ok := conn.(*net.TCPConn)
		if !ok {
			conn.Close()
			continue
		}
		out <- tc
	}
}

// register runs on the reactor goroutine: it is the only place that
// mutates srv.sessions or calls RegisterFile.
func (srv *server) register(r *reactor.Reactor, conn *net.TCPConn) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return
	}
	var fd int
	rawConn.Control(func(p uintptr) { fd = int(p) })

	sess := &session{conn: conn, txn: txn.NewSession(), out: bufio.NewWriter(conn)}
	srv.sessions[conn] = sess

	reader := bufio.NewReader(conn)
	err = r.RegisterFile(fd, reactor.Readable,
		func(r *reactor.Reactor, fd int, handle any) {
			srv.handleReadable(r, fd, conn, sess, reader)
		}, nil, nil)
	if err != nil {
		conn.Close()
		delete(srv.sessions, conn)
	}
}

func (srv *server) handleReadable(r *reactor.Reactor, fd int, conn *net.TCPConn, sess *session, reader *bufio.Reader) {
	line, err := reader.ReadString('\n')
	if line != "" {
		reply := srv.dispatch(sess, strings.Fields(strings.TrimSpace(line)))
		sess.out.WriteString(reply)
		sess.out.WriteByte('\n')
		sess.out.Flush()
	}
	if err != nil {
		r.UnregisterFile(fd, reactor.Readable)
		conn.Close()
		delete(srv.sessions, conn)
	}
}

// dispatch interprets one command line. It exists to exercise the
// keyspace/txn wiring end to end, not as a serious command table: real
// argument validation, type checking, and the rest of the command
// surface are exactly the "command parsing" this engine treats as an
// external collaborator.
func (srv *server) dispatch(sess *session, argv []string) string {
	if len(argv) == 0 {
		return "ERR empty command"
	}
	cmd := strings.ToUpper(argv[0])

	if sess.txn.InTransaction() && cmd != "EXEC" && cmd != "DISCARD" && cmd != "MULTI" {
		if err := sess.txn.Queue(cmd, argv[1:]); err != nil {
			sess.txn.MarkQueueInvalid()
			return "QUEUED (invalid)"
		}
		return "QUEUED"
	}

	return srv.execute(sess, cmd, argv)
}

// execute runs one command's logic directly, bypassing the queuing check
// in dispatch. EXEC's Executor calls this (not dispatch) so that a
// command running as part of a transaction's batch executes immediately
// instead of being re-queued, since the session's in-transaction flag is
// still set while the batch runs.
func (srv *server) execute(sess *session, cmd string, argv []string) string {
	switch cmd {
	case "WATCH":
		for _, k := range argv[1:] {
			if err := sess.txn.Watch(srv.ks.Watches(), k); err != nil {
				return "ERR " + err.Error()
			}
		}
		return "OK"
	case "UNWATCH":
		sess.txn.Unwatch()
		return "OK"
	case "MULTI":
		if err := sess.txn.Multi(); err != nil {
			return "ERR " + err.Error()
		}
		return "OK"
	case "DISCARD":
		if err := sess.txn.Discard(); err != nil {
			return "ERR " + err.Error()
		}
		return "OK"
	case "EXEC":
		res, err := sess.txn.Exec(func(c txn.QueuedCommand) any {
			return srv.execute(sess, c.Cmd, append([]string{c.Cmd}, c.Argv...))
		})
		if err != nil {
			return "ERR " + err.Error()
		}
		if res.Aborted {
			return "EXECABORT"
		}
		if res.Nil {
			return "(nil)"
		}
		return strings.Join(toStrings(res.Replies), ";")
	case "SET":
		if len(argv) != 3 {
			return "ERR usage: SET key value"
		}
		srv.ks.Set(argv[1], keyspace.NewString([]byte(argv[2])))
		return "OK"
	case "GET":
		if len(argv) != 2 {
			return "ERR usage: GET key"
		}
		obj, ok := srv.ks.Get(argv[1])
		if !ok || obj.Kind != keyspace.KindString {
			return "(nil)"
		}
		return string(obj.Str)
	case "DEL":
		if len(argv) != 2 {
			return "ERR usage: DEL key"
		}
		if srv.ks.Delete(argv[1]) {
			return "1"
		}
		return "0"
	case "FLUSHALL":
		srv.ks.FlushAll()
		return "OK"
	default:
		return "ERR unknown command " + cmd
	}
}

// writeLogifaceEvent is the default structured-log sink for
// -structured-log: plain key=value lines to stderr via the standard
// logger, standing in for whatever backend (stumpy, zerolog, logrus, slog)
// a real deployment would hand to reactor.NewLogifaceLogger instead.
func writeLogifaceEvent(e *reactor.LogifaceEvent) error {
	var b strings.Builder
	fmt.Fprintf(&b, "level=%s msg=%q", e.Level(), e.Message())
	for k, v := range e.Fields() {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	if err := e.Err(); err != nil {
		fmt.Fprintf(&b, " err=%q", err.Error())
	}
	log.Print(b.String())
	return nil
}

func toStrings(replies []any) []string {
	out := make([]string, len(replies))
	for i, r := range replies {
		if s, ok := r.(string); ok {
			out[i] = s
		} else {
			out[i] = "?"
		}
	}
	return out
}
