package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type CommandName string

const (
	CmdReply    CommandName = "reply"
	CmdEdit     CommandName = "edit"
	CmdDelete   CommandName = "delete"
	CmdReact    CommandName = "react"
	CmdSelect   CommandName = "select"
	CmdForward  CommandName = "forward"
	CmdRetry    CommandName = "retry"
	CmdDiscard  CommandName = "discard"
	CmdFiles    CommandName = "files"
	CmdDownload CommandName = "download"
	CmdShare    CommandName = "share"
	CmdOlder    CommandName = "older"
	CmdCancel   CommandName = "cancel"
	CmdHelp     CommandName = "help"
)

// argSpec: an optional leading message/file index, then required words,
// then optional free text when rest is set.
type argSpec struct {
	index bool
	words int
	rest  bool
	usage string
}

var commandSpecs = map[CommandName]argSpec{
	CmdReply:    {index: true, usage: "/reply <n>"},
	CmdEdit:     {index: true, usage: "/edit <n>"},
	CmdDelete:   {index: true, usage: "/delete <n>"},
	CmdReact:    {index: true, words: 1, usage: "/react <n> <emoji>"},
	CmdSelect:   {index: true, usage: "/select <n>"},
	CmdForward:  {words: 1, usage: "/forward <channel-id>"},
	CmdRetry:    {index: true, usage: "/retry <n>"},
	CmdDiscard:  {index: true, usage: "/discard <n>"},
	CmdFiles:    {usage: "/files"},
	CmdDownload: {index: true, usage: "/download <n>"},
	CmdShare:    {index: true, words: 1, rest: true, usage: "/share <n> <channel-id> [message]"},
	CmdOlder:    {usage: "/older"},
	CmdCancel:   {usage: "/cancel"},
	CmdHelp:     {usage: "/help"},
}

var ErrNotCommand = errors.New("not a command")

// Command is a parsed slash command. Index is 1-based as shown in the feed.
type Command struct {
	Name  CommandName
	Index int
	Args  []string
	Rest  string
}

// IsCommand reports whether the input should be parsed instead of sent.
// A leading "//" escapes a literal slash.
func IsCommand(input string) bool {
	s := strings.TrimSpace(input)
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//")
}

// ParseCommand parses a slash command line.
func ParseCommand(input string) (Command, error) {
	if !IsCommand(input) {
		return Command{}, ErrNotCommand
	}
	fields := strings.Fields(strings.TrimSpace(input)[1:])
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command, try /help")
	}
	name := CommandName(strings.ToLower(fields[0]))
	as, ok := commandSpecs[name]
	if !ok {
		return Command{}, fmt.Errorf("unknown command /%s, try /help", fields[0])
	}
	args := fields[1:]
	cmd := Command{Name: name}

	if as.index {
		if len(args) == 0 {
			return Command{}, fmt.Errorf("usage: %s", as.usage)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
		if err != nil || n <= 0 {
			return Command{}, fmt.Errorf("%q is not a message number; usage: %s", args[0], as.usage)
		}
		cmd.Index = n
		args = args[1:]
	}
	if len(args) < as.words {
		return Command{}, fmt.Errorf("usage: %s", as.usage)
	}
	cmd.Args = args[:as.words]
	extra := args[as.words:]
	switch {
	case as.rest:
		cmd.Rest = strings.Join(extra, " ")
	case len(extra) > 0:
		return Command{}, fmt.Errorf("usage: %s", as.usage)
	}
	return cmd, nil
}

// Unescape strips the "//" escape from a literal message.
func Unescape(input string) string {
	s := strings.TrimLeft(input, " \t")
	if strings.HasPrefix(s, "//") {
		return s[1:]
	}
	return input
}

func helpText() string {
	names := []CommandName{CmdReply, CmdEdit, CmdDelete, CmdReact, CmdSelect, CmdForward, CmdRetry, CmdDiscard, CmdFiles, CmdDownload, CmdShare, CmdOlder, CmdCancel}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, commandSpecs[n].usage)
	}
	return strings.Join(parts, "  ")
}
