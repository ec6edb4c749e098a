// nr-shell is an interactive REPL for poking at a replicated counter
// and a replicated stack from the command line, useful for watching
// combiner rounds and cross-replica convergence happen one command at
// a time instead of under a benchmark's load.
//
// Usage:
//
//	nr-shell [--replicas N | -r N] [--shards N | -s N]
//
// Commands:
//
//	inc <replica> <n>     Increment the counter on a replica by n
//	get <replica>         Read the counter's value on a replica
//	sync <replica>        Catch a replica up with every completed write
//	push <replica> <v>    Push v onto the stack on a replica
//	pop <replica>         Pop a value off the stack on a replica
//	verify <replica>      Drain shard 0 and print a replica's state under lock
//	replicas              Print the number of replicas
//	help                  Show this help
//	exit / quit / q       Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/peterh/liner"

	"github.com/calvinalkan/noderep/examples/counterdata"
	"github.com/calvinalkan/noderep/examples/stackdata"
	"github.com/calvinalkan/noderep/pkg/noderep"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("nr-shell", flag.ContinueOnError)
	replicas := fs.IntP("replicas", "r", 2, "number of replicas")
	shards := fs.IntP("shards", "s", 1, "number of log shards")

	if err := fs.Parse(args); err != nil {
		return err
	}

	repl, err := newREPL(*replicas, uint32(*shards))
	if err != nil {
		return err
	}

	return repl.Run()
}

type replState struct {
	counterTok noderep.ThreadToken
	stackTok   noderep.ThreadToken
	registered bool
}

// REPL drives both a replicated counter and a replicated stack so a
// user can compare their behavior side by side; each has its own
// NodeReplicated instance and its own per-replica thread tokens,
// registered lazily the first time a command touches a given replica.
type REPL struct {
	counter *noderep.NodeReplicated[counterdata.Read, counterdata.Increment, uint64, *counterdata.Counter]
	stack   *noderep.NodeReplicated[stackdata.ReadOp, stackdata.WriteOp, stackdata.Response, *stackdata.Stack]

	nreplicas int
	states    []replState

	liner *liner.State
}

func newREPL(nreplicas int, shards uint32) (*REPL, error) {
	if nreplicas < 1 {
		return nil, errors.New("need at least one replica")
	}

	ccfg := noderep.Config{TMax: 16, N: 1 << 14, B: 16, L: shards}
	counterInitial := make([]*counterdata.Counter, nreplicas)
	for i := range counterInitial {
		counterInitial[i] = new(counterdata.Counter)
	}

	scfg := noderep.Config{TMax: 16, N: 1 << 14, B: 16, L: shards}
	stackInitial := make([]*stackdata.Stack, nreplicas)
	for i := range stackInitial {
		s := stackdata.NewSeeded(0)
		stackInitial[i] = &s
	}

	return &REPL{
		counter:   noderep.New[counterdata.Read, counterdata.Increment, uint64, *counterdata.Counter](ccfg, counterInitial),
		stack:     noderep.New[stackdata.ReadOp, stackdata.WriteOp, stackdata.Response, *stackdata.Stack](scfg, stackInitial),
		nreplicas: nreplicas,
		states:    make([]replState, nreplicas),
	}, nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nr_shell_history")
}

func (r *REPL) ensureRegistered(idx int) error {
	if idx < 0 || idx >= r.nreplicas {
		return fmt.Errorf("replica index out of range: %d", idx)
	}
	st := &r.states[idx]
	if st.registered {
		return nil
	}
	ctok, ok := r.counter.RegisterAt(idx)
	if !ok {
		return fmt.Errorf("replica %d: no room to register with the counter", idx)
	}
	stok, ok := r.stack.RegisterAt(idx)
	if !ok {
		return fmt.Errorf("replica %d: no room to register with the stack", idx)
	}
	st.counterTok = ctok
	st.stackTok = stok
	st.registered = true
	return nil
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("nr-shell - %d replicas\n", r.nreplicas)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("nr-shell> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil
		case "help", "?":
			r.printHelp()
		case "inc":
			r.cmdInc(args)
		case "get":
			r.cmdGet(args)
		case "sync":
			r.cmdSync(args)
		case "push":
			r.cmdPush(args)
		case "pop":
			r.cmdPop(args)
		case "verify":
			r.cmdVerify(args)
		case "replicas":
			fmt.Println(r.nreplicas)
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{"inc", "get", "sync", "push", "pop", "verify", "replicas", "help", "exit", "quit", "q"}
	var out []string
	lower := strings.ToLower(line)
	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			out = append(out, c)
		}
	}
	return out
}

func (r *REPL) printHelp() {
	fmt.Println(`commands:
  inc <replica> <n>     increment the counter on a replica by n
  get <replica>          read the counter's value on a replica
  sync <replica>         catch a replica up with every completed write
  push <replica> <v>     push v onto the stack on a replica
  pop <replica>          pop a value off the stack on a replica
  verify <replica>       drain shard 0 and print that replica's state under lock
  replicas               list the number of replicas
  help                   show this help
  exit / quit / q        exit`)
}

func parseReplicaArg(args []string) (int, error) {
	if len(args) < 1 {
		return 0, errors.New("missing replica index")
	}
	return strconv.Atoi(args[0])
}

func (r *REPL) cmdInc(args []string) {
	idx, err := parseReplicaArg(args)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.ensureRegistered(idx); err != nil {
		fmt.Println("error:", err)
		return
	}
	n := uint64(1)
	if len(args) >= 2 {
		v, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		n = v
	}
	total := r.counter.ExecuteMutAt(idx, r.states[idx].counterTok, counterdata.Increment{By: n})
	fmt.Println(total)
}

func (r *REPL) cmdGet(args []string) {
	idx, err := parseReplicaArg(args)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.ensureRegistered(idx); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(r.counter.ExecuteAt(idx, r.states[idx].counterTok, counterdata.Read{}))
}

func (r *REPL) cmdSync(args []string) {
	idx, err := parseReplicaArg(args)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.ensureRegistered(idx); err != nil {
		fmt.Println("error:", err)
		return
	}
	r.counter.SyncAt(idx, r.states[idx].counterTok)
	r.stack.SyncAt(idx, r.states[idx].stackTok)
	fmt.Println("ok")
}

func (r *REPL) cmdVerify(args []string) {
	idx, err := parseReplicaArg(args)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.ensureRegistered(idx); err != nil {
		fmt.Println("error:", err)
		return
	}

	var total uint64
	r.counter.Verify(idx, func(c *counterdata.Counter) {
		total = c.Dispatch(counterdata.Read{})
	})

	var depth int
	r.stack.Verify(idx, func(s *stackdata.Stack) {
		depth = s.Len()
	})

	fmt.Printf("ok: counter=%d stack_len=%d\n", total, depth)
}

func (r *REPL) cmdPush(args []string) {
	idx, err := parseReplicaArg(args)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.ensureRegistered(idx); err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(args) < 2 {
		fmt.Println("error: missing value to push")
		return
	}
	v, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	r.stack.ExecuteMutAt(idx, r.states[idx].stackTok, stackdata.WriteOp{Kind: stackdata.Push, Value: uint32(v)})
	fmt.Println("ok")
}

func (r *REPL) cmdPop(args []string) {
	idx, err := parseReplicaArg(args)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := r.ensureRegistered(idx); err != nil {
		fmt.Println("error:", err)
		return
	}
	resp := r.stack.ExecuteMutAt(idx, r.states[idx].stackTok, stackdata.WriteOp{Kind: stackdata.Pop})
	if !resp.OK {
		fmt.Println("empty")
		return
	}
	fmt.Println(resp.Value)
}
