package txn

// QueuedCommand is one command buffered inside an open transaction.
type QueuedCommand struct {
	Cmd  string
	Argv []string
}

// Executor runs one queued command and returns its reply. It is supplied
// by the caller at Exec time, not at Queue time, so permission checks can
// be re-evaluated against current state per the spec's "commands still
// undergo their normal permission check at execution time" rule.
type Executor func(QueuedCommand) any

type watchedKey struct {
	registry *Registry
	key      string
}

// Session holds one client connection's transaction state: whether a
// MULTI is open, the buffered command queue, and the two independent
// dirty flags that decide EXEC's outcome.
type Session struct {
	inTransaction bool
	queue         []QueuedCommand
	dirtyQueue    bool
	dirtyCAS      bool
	watching      []watchedKey
}

// NewSession returns a session in the normal (non-transactional) state.
func NewSession() *Session { return &Session{} }

// InTransaction reports whether MULTI is currently open.
func (s *Session) InTransaction() bool { return s.inTransaction }

// DirtyCAS reports whether a watched key has been invalidated since the
// last UNWATCH/EXEC/DISCARD. WATCH does not clear it.
func (s *Session) DirtyCAS() bool { return s.dirtyCAS }

// Watch adds key to the session's watch set against reg. WATCH inside an
// open transaction is an error. Idempotent for a given (session, reg, key)
// triple.
func (s *Session) Watch(reg *Registry, key string) error {
	if s.inTransaction {
		return ErrWatchInsideMulti
	}
	reg.watch(s, key)
	return nil
}

// Unwatch releases every key this session is watching and clears
// dirty-cas.
func (s *Session) Unwatch() {
	s.unwatchAll()
	s.dirtyCAS = false
}

func (s *Session) unwatchAll() {
	for _, w := range s.watching {
		w.registry.unwatch(s, w.key)
	}
	s.watching = nil
}

// Multi opens a transaction. Nested MULTI is an error; no state changes
// when it is rejected.
func (s *Session) Multi() error {
	if s.inTransaction {
		return ErrNestedMulti
	}
	s.inTransaction = true
	return nil
}

// Queue buffers a command inside an open transaction.
func (s *Session) Queue(cmd string, argv []string) error {
	if !s.inTransaction {
		return ErrNotInTransaction
	}
	s.queue = append(s.queue, QueuedCommand{Cmd: cmd, Argv: argv})
	return nil
}

// MarkQueueInvalid records a parse-time command-validity failure, which
// forces EXEC to abort without running anything.
func (s *Session) MarkQueueInvalid() { s.dirtyQueue = true }

// Discard cancels an open transaction: the queue is dropped, both dirty
// flags clear, and every watched key is released.
func (s *Session) Discard() error {
	if !s.inTransaction {
		return ErrNotInTransaction
	}
	s.unwatchAll()
	s.reset()
	return nil
}

// ExecResult is the three-way outcome of EXEC described in §4.5.
type ExecResult struct {
	// Aborted is true when dirty-queue was set: EXEC ran nothing and
	// should reply with an abort/error condition to the client.
	Aborted bool
	// Nil is true when dirty-cas was set: EXEC ran nothing and should
	// reply with a null-array (no commands executed, but not an error).
	Nil bool
	// Replies holds one entry per queued command, in order, when neither
	// Aborted nor Nil is set.
	Replies []any
}

// Exec runs the queued transaction. Watched keys are always released
// first, matching the spec's "otherwise unwatch, then execute" ordering
// so that mutations the transaction itself makes cannot flag its own
// dirty-cas after the fact.
func (s *Session) Exec(run Executor) (ExecResult, error) {
	if !s.inTransaction {
		return ExecResult{}, ErrNotInTransaction
	}
	s.unwatchAll()
	defer s.reset()

	switch {
	case s.dirtyQueue:
		return ExecResult{Aborted: true}, nil
	case s.dirtyCAS:
		return ExecResult{Nil: true}, nil
	}

	replies := make([]any, 0, len(s.queue))
	for _, cmd := range s.queue {
		replies = append(replies, run(cmd))
	}
	return ExecResult{Replies: replies}, nil
}

func (s *Session) reset() {
	s.inTransaction = false
	s.queue = nil
	s.dirtyQueue = false
	s.dirtyCAS = false
}
