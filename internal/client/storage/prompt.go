package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptForCommit asks for the value to commit and where to keep its secret.
// A value of the form @path commits the contents of that file. An empty
// destination means the caller picks the default location.
func PromptForCommit(sc *bufio.Scanner, out io.Writer) (input, destination string, ok bool) {
	fmt.Fprint(out, "Enter value to commit (@file to read a file): ")
	if !sc.Scan() {
		return "", "", false
	}
	line := sc.Text()

	if path, isFile := strings.CutPrefix(strings.TrimSpace(line), "@"); isFile && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "Failed to read file %q: %v\n", path, err)
			return "", "", false
		}
		line = string(data)
	}

	fmt.Fprint(out, "Save secret to (leave empty for default): ")
	if !sc.Scan() {
		return line, "", true
	}
	return line, strings.TrimSpace(sc.Text()), true
}
