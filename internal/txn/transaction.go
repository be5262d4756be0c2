package txn

// Participant is state that can be rolled back.
//
// CaptureState must return a value that RestoreState can later apply to
// reproduce the exact state at capture time, including any version counters.
type Participant interface {
	CaptureState() any
	RestoreState(state any)
}

// Result is the outcome of a closed scope.
type Result int

const (
	// Aborted means the scope's changes were rolled back.
	Aborted Result = iota
	// Committed means the scope's changes were kept (or folded into the parent).
	Committed
)

func (r Result) String() string {
	if r == Committed {
		return "committed"
	}
	return "aborted"
}

// CloseCallback runs when the scope it was registered on closes.
type CloseCallback func(tx *Transaction, result Result)

// OuterCloseCallback runs once after the root scope has closed.
type OuterCloseCallback func(result Result)

type scopeState int

const (
	stateOpen scopeState = iota
	stateCommitted
	stateAborted
)

// Transaction is one scope in a nested transaction.
type Transaction struct {
	parent *Transaction
	child  *Transaction
	depth  int
	state  scopeState

	snapshots map[Participant]any
	touched   []Participant

	onClose []CloseCallback

	// set by Simulate; the scope is always aborted
	simulation bool

	// root only
	onOuterClose []OuterCloseCallback
	enlisted     map[any]struct{}
}

// Open begins a new scope. A nil parent opens a root scope; otherwise the
// new scope is nested in parent and must close before parent does.
//
// Opening a child of a closed scope, or of a scope that already has an open
// child, panics.
func Open(parent *Transaction) *Transaction {
	if parent == nil {
		return &Transaction{snapshots: make(map[Participant]any)}
	}
	parent.checkInnermost("open nested scope")

	tx := &Transaction{
		parent:    parent,
		depth:     parent.depth + 1,
		snapshots: make(map[Participant]any),
	}
	parent.child = tx
	return tx
}

// Parent returns the enclosing scope, or nil for a root scope.
func (tx *Transaction) Parent() *Transaction {
	return tx.parent
}

// Root returns the outermost scope of the chain.
func (tx *Transaction) Root() *Transaction {
	root := tx
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Depth returns 0 for a root scope and parent.Depth()+1 otherwise.
func (tx *Transaction) Depth() int {
	return tx.depth
}

// IsOpen reports whether the scope has neither committed nor aborted.
func (tx *Transaction) IsOpen() bool {
	return tx.state == stateOpen
}

// Track records p's pre-image in this scope unless it was already recorded
// here. Call it before every mutation of p.
func (tx *Transaction) Track(p Participant) {
	if p == nil {
		panic(misuse(ErrCodeNilParticipant, tx.depth, "track nil participant"))
	}
	tx.checkInnermost("track participant")

	if _, ok := tx.snapshots[p]; ok {
		return
	}
	tx.snapshots[p] = p.CaptureState()
	tx.touched = append(tx.touched, p)
}

// Tracked reports whether p has a pre-image recorded in this scope.
func (tx *Transaction) Tracked(p Participant) bool {
	_, ok := tx.snapshots[p]
	return ok
}

// OnClose registers fn to run when this scope closes, after its snapshots
// have been restored or folded into the parent. Callbacks run in
// registration order.
func (tx *Transaction) OnClose(fn CloseCallback) {
	tx.checkInnermost("register close callback")
	tx.onClose = append(tx.onClose, fn)
}

// OnOuterClose registers fn to run after the root scope closes. It may be
// called from any depth. Callbacks run in registration order, after the
// whole chain is closed, so they may open new transactions.
func (tx *Transaction) OnOuterClose(fn OuterCloseCallback) {
	tx.checkInnermost("register outer close callback")
	root := tx.Root()
	root.onOuterClose = append(root.onOuterClose, fn)
}

// Enlist registers fn as an outer close callback keyed by key, at most once
// per root scope. It reports whether this call registered it.
func (tx *Transaction) Enlist(key any, fn OuterCloseCallback) bool {
	tx.checkInnermost("enlist")
	root := tx.Root()
	if root.enlisted == nil {
		root.enlisted = make(map[any]struct{})
	}
	if _, ok := root.enlisted[key]; ok {
		return false
	}
	root.enlisted[key] = struct{}{}
	root.onOuterClose = append(root.onOuterClose, fn)
	return true
}

// Commit closes the scope keeping its changes. Nested scopes hand their
// pre-images to the parent for participants the parent has not recorded;
// a root scope drops them.
func (tx *Transaction) Commit() {
	tx.checkInnermost("commit")

	if tx.parent != nil {
		for _, p := range tx.touched {
			if _, ok := tx.parent.snapshots[p]; ok {
				continue
			}
			tx.parent.snapshots[p] = tx.snapshots[p]
			tx.parent.touched = append(tx.parent.touched, p)
		}
	}
	tx.close(stateCommitted)
}

// Abort closes the scope restoring every participant it touched.
func (tx *Transaction) Abort() {
	tx.checkInnermost("abort")

	for i := len(tx.touched) - 1; i >= 0; i-- {
		p := tx.touched[i]
		p.RestoreState(tx.snapshots[p])
	}
	tx.close(stateAborted)
}

// Close aborts the scope if it is still open. It is a no-op on a closed
// scope.
func (tx *Transaction) Close() {
	if tx.state != stateOpen {
		return
	}
	tx.Abort()
}

func (tx *Transaction) close(state scopeState) {
	tx.state = state
	tx.snapshots = nil
	tx.touched = nil
	if tx.parent != nil {
		tx.parent.child = nil
	}

	result := Aborted
	if state == stateCommitted {
		result = Committed
	}

	for _, fn := range tx.onClose {
		fn(tx, result)
	}
	tx.onClose = nil

	if tx.parent == nil {
		callbacks := tx.onOuterClose
		tx.onOuterClose = nil
		tx.enlisted = nil
		for _, fn := range callbacks {
			fn(result)
		}
	}
}

// Simulation reports whether tx was opened by Simulate.
func (tx *Transaction) Simulation() bool {
	return tx.simulation
}

// Check panics with a MisuseError unless tx is open and has no open nested
// scope. A nil tx passes. Mutating calls run it on entry so a closed scope
// is rejected even when the call would change nothing.
func (tx *Transaction) Check() {
	if tx == nil {
		return
	}
	tx.checkInnermost("use scope")
}

func (tx *Transaction) checkInnermost(op string) {
	if tx.state != stateOpen {
		panic(misuse(ErrCodeClosedScope, tx.depth, "%s: scope already closed", op))
	}
	if tx.child != nil {
		panic(misuse(ErrCodeNotInnermost, tx.depth, "%s: scope has an open nested scope at depth %d", op, tx.child.depth))
	}
}
