package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/CommitKeeper/internal/client/storage"
	"github.com/atinyakov/CommitKeeper/internal/service"
)

const shellHelp = "Available commands: help, commit, list, reveal <file>, verify <file> <commitment>, exit"

// cmdShell runs the interactive loop until exit or end of input. Command
// failures are reported and the loop goes on.
func (a *app) cmdShell(ctx context.Context, args []string) error {
	o, rest, err := a.parse("shell", args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: shell takes no arguments", errUsage)
	}

	k, closeKeeper, err := a.keeper(o, false)
	if err != nil {
		return err
	}
	defer closeKeeper()

	scanner := bufio.NewScanner(a.stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(a.stdout, "commitkeeper> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.stdout)
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Fprintln(a.stdout, shellHelp)
		case "commit":
			input, destination, ok := storage.PromptForCommit(scanner, a.stdout)
			if !ok {
				continue
			}
			rec, path, err := k.Commit(ctx, input, destination, false)
			if err != nil {
				a.shellError(err)
				continue
			}
			printCommitted(a.stdout, rec, path)
		case "list":
			if err := a.printHistory(k); err != nil {
				a.shellError(err)
			}
		case "reveal":
			if len(fields) < 2 {
				fmt.Fprintln(a.stdout, "Usage: reveal <file>")
				continue
			}
			rec, err := k.Reveal(fields[1])
			if err != nil {
				a.shellError(err)
				continue
			}
			printOpening(a.stdout, rec)
		case "verify":
			if len(fields) < 3 {
				fmt.Fprintln(a.stdout, "Usage: verify <file> <commitment>")
				continue
			}
			a.shellVerify(k, fields[1], fields[2])
		case "exit", "quit":
			return nil
		default:
			fmt.Fprintf(a.stdout, "Unknown command %q. %s\n", fields[0], shellHelp)
		}
	}
}

func (a *app) shellVerify(k *service.KeeperService, source, published string) {
	ok, err := k.Check(source, published)
	switch {
	case err != nil:
		a.shellError(err)
	case ok:
		fmt.Fprintln(a.stdout, "valid")
	default:
		fmt.Fprintln(a.stdout, "MISMATCH")
	}
}

func (a *app) shellError(err error) {
	fmt.Fprintf(a.stdout, "error: %v\n", err)
}
