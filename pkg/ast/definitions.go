package ast

import "strings"

// ---------------------------- Statements ----------------------------

// Modification is `lookup op= expr` (spec §4.5), e.g. x += 1, .m ^= flag.
type Modification struct {
	Target Lookup
	Op     string // one of operators.ModOp's string values
	Value  Expression
}

func (m Modification) IsMono() bool { return m.Target.Mono }

// Let binds a fresh name to the value of an expression (spec §4.5's
// let/unlet pair). The parser produces a LetStmt for `let` and a separate
// UnletStmt for `unlet`; the engine runs both through one handler with the
// direction flipped for UnletStmt, matching original_source's
// let_eval/unlet_eval symmetry.
type LetStmt struct {
	Name  string
	Mono  bool
	Value Expression
}

func (l LetStmt) IsMono() bool { return l.Mono }

// UnletStmt removes a binding, checking its current value against Value.
type UnletStmt struct {
	Name  string
	Mono  bool
	Value Expression
}

func (u UnletStmt) IsMono() bool { return u.Mono }

// Swap exchanges the contents of two variables (self-inverse).
type Swap struct {
	Left, Right Lookup
}

func (s Swap) IsMono() bool { return s.Left.Mono || s.Right.Mono }

// Push moves Src's value into the array named Dst (appending at the tail),
// unbinding Src; Pop is its exact inverse (spec §4.5).
type Push struct {
	Src Lookup
	Dst Lookup
}

func (p Push) IsMono() bool { return p.Src.Mono || p.Dst.Mono }

// Pop removes the tail element of Dst's array and (re)binds it as Src.
type Pop struct {
	Src Lookup
	Dst Lookup
}

func (p Pop) IsMono() bool { return p.Src.Mono || p.Dst.Mono }

// Promote rebinds a mono-bound local as a non-mono local of the same
// value, in the same scope (spec §4.5). Backward it demotes: the non-mono
// binding is destroyed and not restored under its mono name, since the
// value is re-derivable when the code next runs forwards.
type Promote struct {
	Mono string
	Name string
}

func (Promote) IsMono() bool { return false }

// If is the dual-condition conditional (spec §4.6): Entry is checked
// before the branch runs forward (and after it, backward, against Exit
// unless Exit is nil meaning fi() — re-check Entry). Exit is nil exactly
// when the source wrote `fi()`.
type If struct {
	Entry    Expression
	Then     []Statement
	Else     []Statement
	Exit     Expression
	ExitSame bool // true when the source omitted the exit condition (fi())
}

// IsMono mirrors original_source/parsing.py's `_if`: mono if either
// condition carries mono information (when ExitSame is set Exit is nil, so
// only Entry is consulted).
func (i If) IsMono() bool {
	return (i.Entry != nil && i.Entry.HasMono()) || (i.Exit != nil && i.Exit.HasMono())
}

// Loop is the dual-condition loop (spec §4.6): running forward, the loop
// iterates while Entry holds; Exit is only asserted (false before the first
// iteration, true after each one) and never decides when to stop. Running
// backward the two roles swap. A bare pool() with no expression is a parse
// error unless Entry is mono, in which case Exit is the Entry expression.
type Loop struct {
	Entry Expression
	Body  []Statement
	Exit  Expression
}

// IsMono mirrors parsing.py's loop production: mono if the forward
// condition carries mono information, or the exit condition does (the two
// are the same expression when the source wrote a bare `pool()`).
func (l Loop) IsMono() bool {
	return (l.Entry != nil && l.Entry.HasMono()) || (l.Exit != nil && l.Exit.HasMono())
}

// ForLoop iterates deep copies of Iterable's elements into Var (in reverse
// order when running backward), unbinding Var after each pass of Body; the
// value Var holds at that point is not compared against anything.
type ForLoop struct {
	Var      string
	Iterable Expression
	Body     []Statement
}

// IsMono mirrors parsing.py's `_for`: mono exactly when the iterator
// expression carries mono information (the loop variable's own
// mono-ness is irrelevant — only the source being iterated matters).
func (f ForLoop) IsMono() bool { return f.Iterable != nil && f.Iterable.HasMono() }

// DoYieldUndo is `do <body> [yield <body>] undo` (spec §4.6): Do always
// runs forwards, then Yield runs (forwards if the construct itself is
// running forwards, backwards if it is running backwards), then Do runs
// backwards — grounded on original_source's DoUndo node, which carries
// do_lines and yield_lines as two statement blocks (parsing.py's
// `do : DO NEWLINE statements YIELD NEWLINE statements UNDO`), not an
// expression. Yield is nil when the source wrote the no-yield `do … undo`
// form (parsing.py's second `do` production).
type DoYieldUndo struct {
	Do    []Statement
	Yield []Statement
}

// IsMono is always false: original_source/parsing.py's do_yield_undo
// production hardcodes ismono=False regardless of what Do/Yield contain,
// since undoing is baked into the construct's own forward/backward/forward
// structure rather than depending on the direction of the enclosing call.
func (DoYieldUndo) IsMono() bool { return false }

// TryCatch iterates Source's candidate values into Var, running Body
// (which may contain Catch statements anywhere within it); the first
// value for which no Catch fires is kept bound, the rest are rewound
// (spec §4.6).
type TryCatch struct {
	Var    string
	Source Expression
	Body   []Statement
}

// IsMono is always false: original_source/parsing.py's `_try` production
// hardcodes ismono=False and instead outright rejects a mono iterator
// (RailwayIllegalMono) at parse time, since catch-driven backtracking has
// no way to re-derive which candidate to skip without running forward.
func (TryCatch) IsMono() bool { return false }

// Catch is `catch(cond)`: when encountered inside a TryCatch body during
// forward execution with cond truthy, unwinds the body backwards to the
// try entry and advances to the next candidate (spec §4.6). The parser
// does not check that a catch sits inside a TryCatch body; one that fires
// elsewhere ends the run with the catch signal as its error.
type Catch struct {
	Cond Expression
}

// IsMono is always true: parsing.py's `catch` production hardcodes
// ismono=True, since a catch is a forward-only control-flow signal that
// unwinding must never re-trigger (execCatch is already a no-op backward;
// this lets a catch nested directly in an outer body be skipped the same
// way any other mono statement is).
func (Catch) IsMono() bool { return true }

// CallArg is one argument slot in a call: either borrowed (shared, caller
// keeps ownership) or stolen (moved into the callee, spec §4.7).
type CallArg struct {
	Name     string
	Borrowed bool
}

// CallStmt invokes (Uncall: un-invokes) a function by name, binding its
// returned cells back into the caller's scope under Out. NumThreads is
// nil for an ordinary sequential call; when present (spec §4.8), the
// call spawns that many concurrent lanes, each receiving one of N equal
// contiguous slices of every stolen array argument and a private ThreadID.
type CallStmt struct {
	FuncName   string
	Uncall     bool
	Borrowed   []string // borrowed argument names, passed by shared reference
	In         []string // stolen argument names, moved out of caller scope
	Out        []string // names the callee's returned cells are bound to
	NumThreads Expression
}

// IsMono mirrors parsing.py's callfunc: a call chain is mono exactly when
// every call in it names a mono function (spec's leading-dot convention);
// CallStmt names exactly one function, so this reduces to checking its own
// leading dot.
func (s CallStmt) IsMono() bool { return strings.HasPrefix(s.FuncName, ".") }

// Barrier is a named rendezvous point: every lane spawned by the
// enclosing parallel call must reach a barrier with the same Name before
// any of them proceeds past it (spec §4.8).
type Barrier struct {
	Name string
}

func (Barrier) IsMono() bool { return false }

// Mutex guards Body with a directional lock (spec §4.8): the first lane
// to arrive latches the direction, and lanes then pass one at a time in
// that direction's TID order (ascending forward, descending backward),
// each waiting for its turn; a lane arriving while the opposite direction
// is latched raises a mutex-direction-error.
type Mutex struct {
	Name string
	Body []Statement
}

func (Mutex) IsMono() bool { return false }

// Print outputs the value of an expression (spec §4.5); irreversible,
// paired at parse time with no inverse statement.
type Print struct {
	Value Expression
}

func (Print) IsMono() bool { return false }

// ---------------------------- Top level ----------------------------

// Function is one `func` definition, ended by `return` or `undoreturn`
// (spec §4.7). A
// plain function's Body runs forward for call and backward for uncall;
// an Undoreturn function instead runs Body forward, then immediately
// replays it backward before returning (self-undoing helper).
type Function struct {
	Name        string
	Undoreturn  bool
	Borrowed    []string
	In          []string
	Body        []Statement
	Out         []string
}

// Module is a parsed source file: its function table plus top-level
// statements, which run once at start of day to populate Globals.
type Module struct {
	Functions map[string]*Function
	Globals   []Statement
}
