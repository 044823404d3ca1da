package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

func isUUID(s string) bool {
	return uuid.Validate(s) == nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// confirm asks a yes/no question on stdin, defaulting to no.
func confirm(globals *Globals, question string) bool {
	fmt.Fprintf(globals.out(), "%s [y/N]: ", question)

	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
