package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/tetragramaton/ruiden-go/internal/codec"
	"github.com/tetragramaton/ruiden-go/internal/register"
	"github.com/tetragramaton/ruiden-go/internal/ruiden"
)

var errUsage = errors.New("usage")

// Shell executes interactive commands against one device.
type Shell struct {
	dev *ruiden.Ruiden
	out io.Writer
}

func NewShell(dev *ruiden.Ruiden, out io.Writer) *Shell {
	return &Shell{dev: dev, out: out}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("init"),
	readline.PcItem("info"),
	readline.PcItem("all"),
	readline.PcItem("id"),
	readline.PcItem("sn"),
	readline.PcItem("fw"),
	readline.PcItem("model"),
	readline.PcItem("temp"),
	readline.PcItem("vset"),
	readline.PcItem("iset"),
	readline.PcItem("vout"),
	readline.PcItem("iout"),
	readline.PcItem("read"),
	readline.PcItem("write"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

// Run reads commands until exit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ruiden> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	stopWatch := closeOnDone(ctx, rl)
	defer stopWatch()
	s.out = rl.Stdout()

	s.printHelp()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}

		quit, err := s.Exec(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// closeOnDone closes c once ctx is done, unblocking a pending Readline.
// The returned func stops the watcher and closes c if it is still open.
func closeOnDone(ctx context.Context, c io.Closer) func() {
	var once sync.Once
	closeFn := func() { once.Do(func() { _ = c.Close() }) }
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closeFn()
		case <-done:
		}
	}()
	return func() {
		close(done)
		closeFn()
	}
}

// Exec runs one command line.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool, err error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "exit", "quit", "q":
		return true, nil

	case "init":
		ident, err := s.dev.FetchInit(ctx)
		if err != nil {
			return false, err
		}
		return false, printJSON(s.out, ident)
	case "info":
		info, err := s.dev.FetchInfo(ctx)
		if err != nil {
			return false, err
		}
		return false, printJSON(s.out, info)
	case "all":
		if err := s.dev.FetchAll(ctx); err != nil {
			return false, err
		}
		return false, printJSON(s.out, snapshot{Init: s.dev.Init(), Info: s.dev.Info()})

	case "id":
		id, err := s.dev.GetID(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, id)
	case "sn":
		sn, err := s.dev.GetSN(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, sn)
	case "fw":
		fw, err := s.dev.GetFW(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, fw)
	case "model":
		m, err := s.dev.GetModel(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, m)
	case "temp":
		return false, s.cmdTemp(ctx)

	case "vset":
		return false, s.printReading(s.dev.GetVSet(ctx))
	case "iset":
		return false, s.printReading(s.dev.GetISet(ctx))
	case "vout":
		return false, s.printReading(s.dev.GetVOut(ctx))
	case "iout":
		return false, s.printReading(s.dev.GetIOut(ctx))

	case "read", "r":
		return false, s.cmdRead(ctx, args)
	case "write", "w":
		return false, s.cmdWrite(ctx, args)

	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func (s *Shell) cmdTemp(ctx context.Context) error {
	intC, err := s.dev.GetIntC(ctx)
	if err != nil {
		return err
	}
	extC, err := s.dev.GetExtC(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "internal %d °C, external %d °C\n",
		codec.SignedMagnitude(intC), codec.SignedMagnitude(extC))
	return nil
}

func (s *Shell) printReading(r ruiden.Reading, err error) error {
	if err != nil {
		return err
	}
	if !r.Valid {
		fmt.Fprintf(s.out, "raw %d (unknown model, no scale)\n", r.Raw)
		return nil
	}
	fmt.Fprintf(s.out, "%.4g (raw %d)\n", r.Value, r.Raw)
	return nil
}

func (s *Shell) cmdRead(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: read <reg> [count]", errUsage)
	}
	reg, err := register.Parse(args[0])
	if err != nil {
		return err
	}
	count := uint64(1)
	if len(args) == 2 {
		if count, err = strconv.ParseUint(args[1], 0, 16); err != nil {
			return fmt.Errorf("bad count %q: %w", args[1], err)
		}
	}

	words, err := s.dev.ReadMany(ctx, reg.Address(), uint16(count))
	if err != nil {
		return err
	}
	for i, w := range words {
		r := reg + register.Register(i)
		fmt.Fprintf(s.out, "%-8s %3d = %5d (0x%04X)\n", r, r.Address(), w, w)
	}
	return nil
}

func (s *Shell) cmdWrite(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: write <reg> <word>...", errUsage)
	}
	reg, err := register.Parse(args[0])
	if err != nil {
		return err
	}
	words := make([]uint16, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseUint(a, 0, 16)
		if err != nil {
			return fmt.Errorf("bad word %q: %w", a, err)
		}
		words = append(words, uint16(v))
	}

	if err := s.dev.WriteMany(ctx, reg, words); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "wrote %d word(s) at %s\n", len(words), reg)
	return nil
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  init | info | all        fetch and print a snapshot
  id | sn | fw | model     identity fields
  temp                     internal/external temperature
  vset | iset | vout | iout scaled setpoints and outputs
  read <reg> [n]           read n registers (name or address)
  write <reg> <word>...    write raw words
  help | exit
`)
}
