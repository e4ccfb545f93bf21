package secret

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrUnavailable is returned when the variable is unset and there is no
// terminal to prompt on.
var ErrUnavailable = errors.New("secret: not set and no terminal available")

// Source resolves a secret from an environment variable, falling back to an
// interactive prompt on the controlling terminal.
type Source struct {
	EnvVar string
	Prompt string

	lookup   func(string) (string, bool)
	terminal func() bool
	read     func() ([]byte, error)
	stderr   io.Writer
}

func NewSource(envVar, prompt string) *Source {
	fd := int(os.Stdin.Fd())
	return &Source{
		EnvVar:   strings.TrimSpace(envVar),
		Prompt:   prompt,
		lookup:   os.LookupEnv,
		terminal: func() bool { return term.IsTerminal(fd) },
		read:     func() ([]byte, error) { return term.ReadPassword(fd) },
		stderr:   os.Stderr,
	}
}

// Get returns the secret. Whitespace-only values are rejected.
func (s *Source) Get() (string, error) {
	if s.EnvVar != "" {
		if value, ok := s.lookup(s.EnvVar); ok {
			value = strings.TrimSpace(value)
			if value == "" {
				return "", fmt.Errorf("%s is set but empty", s.EnvVar)
			}
			return value, nil
		}
	}
	if !s.terminal() {
		return "", ErrUnavailable
	}
	fmt.Fprint(s.stderr, s.Prompt)
	raw, err := s.read()
	fmt.Fprintln(s.stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", errors.New("secret: empty input")
	}
	return value, nil
}
