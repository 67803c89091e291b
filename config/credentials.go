package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// environment variables consulted for credentials
const (
	UserEnv     = "MONGO_USER"
	PasswordEnv = "MONGO_PASS"
)

// LookupFunc reports the value of an environment variable, see os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Prompter asks an operator for the credentials that were neither supplied
// nor found in the environment
type Prompter interface {
	Username() (string, error)
	Password() (string, error)
}

// ResolveCredentials fills User and Password in priority order: the value
// already in cfg, then the environment, then the prompter. A nil prompter
// leaves unresolved credentials empty.
func ResolveCredentials(cfg Config, lookup LookupFunc, p Prompter) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var err error
	if cfg.User == "" {
		if cfg.User, err = resolve(lookup, UserEnv, p, Prompter.Username); err != nil {
			return cfg, errors.Wrap(err, "reading username")
		}
	}
	if cfg.Password == "" {
		if cfg.Password, err = resolve(lookup, PasswordEnv, p, Prompter.Password); err != nil {
			return cfg, errors.Wrap(err, "reading password")
		}
	}
	return cfg, nil
}

func resolve(lookup LookupFunc, key string, p Prompter, ask func(Prompter) (string, error)) (string, error) {
	if v, ok := lookup(key); ok && v != "" {
		return v, nil
	}
	if p == nil {
		return "", nil
	}
	return ask(p)
}

// TerminalPrompter reads credentials from a terminal. The password is read
// without echo when In is a terminal.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer

	reader *bufio.Reader
}

// NewTerminalPrompter prompts on stderr and reads from stdin
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Interactive reports whether In is attached to a terminal
func (t *TerminalPrompter) Interactive() bool {
	return term.IsTerminal(int(t.In.Fd()))
}

func (t *TerminalPrompter) Username() (string, error) {
	fmt.Fprint(t.Out, "Enter MongoDB username: ")
	return t.readLine()
}

func (t *TerminalPrompter) Password() (string, error) {
	fmt.Fprint(t.Out, "Enter MongoDB password: ")
	if !t.Interactive() {
		return t.readLine()
	}
	secret, err := term.ReadPassword(int(t.In.Fd()))
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func (t *TerminalPrompter) readLine() (string, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
