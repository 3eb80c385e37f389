package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atinyakov/CommitKeeper/internal/client/storage"
	"github.com/atinyakov/CommitKeeper/internal/models"
	"github.com/atinyakov/CommitKeeper/internal/service"
)

// cmdCommit: commit [flags] <input|-> [destination]
func (a *app) cmdCommit(ctx context.Context, args []string) error {
	o, rest, err := a.parse("commit", args)
	if err != nil {
		return err
	}
	if len(rest) < 1 || len(rest) > 2 {
		return fmt.Errorf("%w: commit <input|-> [destination]", errUsage)
	}

	input := rest[0]
	if input == "-" {
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = trimNewline(string(b))
	}
	var destination string
	if len(rest) == 2 {
		destination = rest[1]
	}

	k, closeKeeper, err := a.keeper(o, false)
	if err != nil {
		return err
	}
	defer closeKeeper()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	rec, path, err := k.Commit(ctx, input, destination, o.force)
	if err != nil {
		return err
	}
	printCommitted(a.stdout, rec, path)
	return nil
}

// trimNewline drops the one line ending that echo and editors append, so
// "echo foo | commitkeeper commit -" commits "foo".
func trimNewline(s string) string {
	if t, ok := strings.CutSuffix(s, "\r\n"); ok {
		return t
	}
	return strings.TrimSuffix(s, "\n")
}

func printCommitted(w io.Writer, rec models.SecretRecord, path string) {
	fmt.Fprintf(w, "id:         %s\n", rec.ID)
	fmt.Fprintf(w, "scheme:     %s\n", rec.Scheme)
	fmt.Fprintf(w, "commitment: %s\n", rec.Commitment)
	fmt.Fprintf(w, "secret:     %s\n", path)
}

// cmdVerify: verify <secret-file> <commitment>, or
// verify -input v -pepper hex [-scheme s] <commitment>.
func (a *app) cmdVerify(ctx context.Context, args []string) (int, error) {
	o, rest, err := a.parse("verify", args)
	if err != nil {
		return ExitUsage, err
	}

	var ok bool
	switch {
	case o.pepperHex != "" || o.input != "":
		if len(rest) != 1 {
			return ExitUsage, fmt.Errorf("%w: verify -input v -pepper hex <commitment>", errUsage)
		}
		ok, err = service.VerifyOpening(o.scheme, o.input, o.pepperHex, rest[0])
	default:
		if len(rest) != 2 {
			return ExitUsage, fmt.Errorf("%w: verify <secret-file> <commitment>", errUsage)
		}
		o.history = ""
		k, closeKeeper, kerr := a.keeper(o, false)
		if kerr != nil {
			return ExitUsage, kerr
		}
		defer closeKeeper()
		ok, err = k.Check(rest[0], rest[1])
	}
	if err != nil {
		return exitCode(err), err
	}

	if !ok {
		fmt.Fprintln(a.stdout, "MISMATCH")
		return ExitMismatch, nil
	}
	fmt.Fprintln(a.stdout, "valid")
	return ExitOK, nil
}

// cmdReveal: reveal [-url U] <secret-file>
func (a *app) cmdReveal(ctx context.Context, args []string) (int, error) {
	o, rest, err := a.parse("reveal", args)
	if err != nil {
		return ExitUsage, err
	}
	if len(rest) != 1 {
		return ExitUsage, fmt.Errorf("%w: reveal <secret-file>", errUsage)
	}

	o.history = ""
	k, closeKeeper, err := a.keeper(o, false)
	if err != nil {
		return ExitUsage, err
	}
	defer closeKeeper()

	rec, err := k.Reveal(rest[0])
	if err != nil {
		return exitCode(err), err
	}
	printOpening(a.stdout, rec)

	if o.url == "" {
		return ExitOK, nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	accepted, err := storage.RevealRemote(ctx, &http.Client{}, strings.TrimRight(o.url, "/"), rec)
	if err != nil {
		return exitCode(err), err
	}
	if !accepted {
		fmt.Fprintln(a.stdout, "registry:   rejected")
		return ExitMismatch, nil
	}
	fmt.Fprintln(a.stdout, "registry:   accepted")
	return ExitOK, nil
}

func printOpening(w io.Writer, rec models.SecretRecord) {
	fmt.Fprintf(w, "id:         %s\n", rec.ID)
	fmt.Fprintf(w, "scheme:     %s\n", rec.Scheme)
	fmt.Fprintf(w, "input:      %s\n", rec.Input)
	fmt.Fprintf(w, "pepper:     %s\n", rec.Pepper)
	fmt.Fprintf(w, "commitment: %s\n", rec.Commitment)
}

// cmdList: list
func (a *app) cmdList(ctx context.Context, args []string) error {
	o, rest, err := a.parse("list", args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: list takes no arguments", errUsage)
	}
	if o.history == "" {
		return fmt.Errorf("%w: history is disabled", errUsage)
	}

	k, closeKeeper, err := a.keeper(o, true)
	if err != nil {
		return err
	}
	defer closeKeeper()

	return a.printHistory(k)
}

func (a *app) printHistory(k *service.KeeperService) error {
	entries, err := k.History()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.ID, e.Scheme, e.Commitment, e.Path)
	}
	return tw.Flush()
}

// cmdBatch: batch [-workers N] <file|->
func (a *app) cmdBatch(ctx context.Context, args []string) (int, error) {
	o, rest, err := a.parse("batch", args)
	if err != nil {
		return ExitUsage, err
	}
	if len(rest) != 1 {
		return ExitUsage, fmt.Errorf("%w: batch <file|->", errUsage)
	}

	var src io.Reader = a.stdin
	if rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			return ExitNotFound, fmt.Errorf("%w: %w", storage.ErrNotFound, err)
		}
		defer f.Close()
		src = f
	}

	var inputs []string
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			inputs = append(inputs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return ExitParse, fmt.Errorf("%w: %w", storage.ErrParse, err)
	}

	k, closeKeeper, err := a.keeper(o, false)
	if err != nil {
		return ExitUsage, err
	}
	defer closeKeeper()

	code := ExitOK
	for _, res := range k.CommitBatch(ctx, inputs, o.dir, o.workers) {
		if res.Err != nil {
			fmt.Fprintf(a.stdout, "%d\terror: %v\n", res.Index+1, res.Err)
			if code == ExitOK {
				code = exitCode(res.Err)
			}
			continue
		}
		fmt.Fprintf(a.stdout, "%d\t%s\t%s\n", res.Index+1, res.Record.Commitment, res.Path)
	}
	return code, nil
}

// cmdPublish: publish -url U <secret-file>
func (a *app) cmdPublish(ctx context.Context, args []string) error {
	o, rest, err := a.parse("publish", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 || o.url == "" {
		return fmt.Errorf("%w: publish -url U <secret-file>", errUsage)
	}

	o.history = ""
	k, closeKeeper, err := a.keeper(o, false)
	if err != nil {
		return err
	}
	defer closeKeeper()

	rec, err := k.Reveal(rest[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if err := storage.Publish(ctx, &http.Client{}, strings.TrimRight(o.url, "/"), rec); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "published %s %s\n", rec.ID, rec.Commitment)
	return nil
}
