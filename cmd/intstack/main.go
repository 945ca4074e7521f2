package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sanverite/intstack/internal/core"
	"github.com/sanverite/intstack/internal/node"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitFull       = 3
	exitNotPresent = 4
)

const defaultTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  intstack [--node PATH] [--timeout D] set-size <size>   - Set the stack size
  intstack [--node PATH] [--timeout D] push <value>      - Push a value onto the stack
  intstack [--node PATH] [--timeout D] pop               - Pop a value from the stack
  intstack [--node PATH] [--timeout D] unwind            - Pop and display all values
`)
}

// usageError is reported with exit status 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func run(args []string, stdout, stderr io.Writer) int {
	var (
		nodePath string
		timeout  time.Duration
	)
	flagSet := pflag.NewFlagSet("intstack", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	// Values like "-5" after the verb are arguments, not flags.
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&nodePath, "node", filepath.Join(node.DefaultDir, node.DefaultName), "device node path")
	flagSet.DurationVar(&timeout, "timeout", defaultTimeout, "bound for the whole command")
	help := flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		usage(stderr)
		return exitUsage
	}
	if *help {
		usage(stdout)
		return exitOK
	}
	if flagSet.NArg() == 0 {
		usage(stderr)
		return exitUsage
	}

	cmd, err := parseCommand(flagSet.Args())
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		var uerr *usageError
		if errors.As(err, &uerr) && strings.HasPrefix(uerr.msg, "unknown command") {
			usage(stderr)
		}
		return exitUsage
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := cmd.exec(ctx, node.NewClient(nodePath), stdout); err != nil {
		return report(stderr, err)
	}
	return exitOK
}

func report(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, core.ErrCapacityExceeded):
		fmt.Fprintln(stderr, "ERROR: stack is full")
		return exitFull
	case errors.Is(err, core.ErrUnavailable):
		fmt.Fprintf(stderr, "ERROR: device not present: %v\n", err)
		return exitNotPresent
	default:
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return exitFailure
	}
}

type command struct {
	verb  string
	value int32
	size  int
}

func parseCommand(args []string) (command, error) {
	verb := args[0]
	rest := args[1:]

	switch verb {
	case "set-size":
		if len(rest) != 1 {
			return command{}, &usageError{"set-size command requires a size parameter"}
		}
		n, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil || n <= 0 {
			return command{}, &usageError{"size should be > 0"}
		}
		return command{verb: verb, size: int(n)}, nil

	case "push":
		if len(rest) != 1 {
			return command{}, &usageError{"push command requires a value parameter"}
		}
		v, err := strconv.ParseInt(rest[0], 10, 32)
		if err != nil {
			return command{}, &usageError{fmt.Sprintf("value must be a 32-bit integer, got %q", rest[0])}
		}
		return command{verb: verb, value: int32(v)}, nil

	case "pop", "unwind":
		if len(rest) != 0 {
			return command{}, &usageError{verb + " takes no arguments"}
		}
		return command{verb: verb}, nil

	default:
		return command{}, &usageError{"unknown command: " + verb}
	}
}

func (c command) exec(ctx context.Context, client *node.Client, stdout io.Writer) error {
	sess, err := client.Open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	switch c.verb {
	case "set-size":
		return sess.SetSize(ctx, c.size)

	case "push":
		return sess.Push(ctx, c.value)

	case "pop":
		v, ok, err := sess.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "NULL")
			return nil
		}
		fmt.Fprintln(stdout, v)
		return nil

	case "unwind":
		var values []string
		for {
			v, ok, err := sess.Pop(ctx)
			if err != nil {
				if len(values) > 0 {
					fmt.Fprintln(stdout, strings.Join(values, " "))
				}
				return err
			}
			if !ok {
				break
			}
			values = append(values, strconv.FormatInt(int64(v), 10))
		}
		if len(values) == 0 {
			fmt.Fprintln(stdout, "NULL")
			return nil
		}
		fmt.Fprintln(stdout, strings.Join(values, " "))
		return nil
	}
	return fmt.Errorf("unhandled command %q", c.verb)
}
