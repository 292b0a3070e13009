package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Wire Constants
// --------------------------------------------------------------------------

const (
	// Command keywords (case-sensitive)

	KeywordSet = "SET"
	KeywordGet = "GET"
	KeywordBye = "BYE"

	// Response payloads, sent compressed with the configured codec

	ResponseOK       = "OK\n"
	ResponseNotFound = "NOT FOUND\n"
	ResponseFarewell = "Goodbye!\n"
	ResponseError    = "ERROR\n"

	// LineDelimiter terminates every command on the wire
	LineDelimiter = '\n'
)

// --------------------------------------------------------------------------
// Command Structure
// --------------------------------------------------------------------------

// Command is a single parsed protocol line.
// Which fields are used depends on the type of command.
type Command struct {
	// Type of command
	CmdType CommandType

	Key   string // Used for: Set, Get
	Value string // Used for: Set (hex encoded, compressed payload)
}

// ParseCommand parses one protocol line (without the delimiter).
// Tokens are separated by whitespace. Lines that do not match any known
// form exactly are returned with CmdTUnknown.
func ParseCommand(line []byte) Command {
	parts := strings.Fields(string(line))

	switch {
	case len(parts) == 3 && parts[0] == KeywordSet:
		return Command{CmdType: CmdTSet, Key: parts[1], Value: parts[2]}
	case len(parts) == 2 && parts[0] == KeywordGet:
		return Command{CmdType: CmdTGet, Key: parts[1]}
	case len(parts) == 1 && parts[0] == KeywordBye:
		return Command{CmdType: CmdTBye}
	default:
		return Command{CmdType: CmdTUnknown}
	}
}

// Encode returns the wire form of the command including the line delimiter
func (c Command) Encode() ([]byte, error) {
	switch c.CmdType {
	case CmdTSet:
		if err := validateToken("key", c.Key); err != nil {
			return nil, err
		}
		if err := validateToken("value", c.Value); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%s %s %s\n", KeywordSet, c.Key, c.Value)), nil
	case CmdTGet:
		if err := validateToken("key", c.Key); err != nil {
			return nil, err
		}
		return []byte(fmt.Sprintf("%s %s\n", KeywordGet, c.Key)), nil
	case CmdTBye:
		return []byte(KeywordBye + "\n"), nil
	default:
		return nil, fmt.Errorf("cannot encode command of type %s", c.CmdType)
	}
}

// --------------------------------------------------------------------------
// Command Factory Functions
// --------------------------------------------------------------------------

// NewSetCommand creates a new Set command, hexValue must already be hex encoded
func NewSetCommand(key, hexValue string) Command {
	return Command{CmdType: CmdTSet, Key: key, Value: hexValue}
}

// NewGetCommand creates a new Get command
func NewGetCommand(key string) Command {
	return Command{CmdType: CmdTGet, Key: key}
}

// NewByeCommand creates a new termination command
func NewByeCommand() Command {
	return Command{CmdType: CmdTBye}
}

// validateToken checks that s survives whitespace tokenization unchanged
func validateToken(name, s string) error {
	if s == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	if strings.ContainsAny(s, " \t\r\n\v\f") {
		return fmt.Errorf("%s must not contain whitespace: %q", name, s)
	}
	return nil
}

// --------------------------------------------------------------------------
// Command Type
// --------------------------------------------------------------------------

// CommandType represents the type of a command
type CommandType uint8

// String returns the string representation of the command type
func (t CommandType) String() string {
	switch t {
	case CmdTSet:
		return "set"
	case CmdTGet:
		return "get"
	case CmdTBye:
		return "bye"
	default:
		return "unknown"
	}
}

const (
	CmdTUnknown CommandType = iota // Anything that is not a valid command
	CmdTSet                        // Store a value under a key
	CmdTGet                        // Retrieve the value of a key
	CmdTBye                        // Terminate the session
)
