package command

import (
	"fmt"

	"rkvd/internal/respio"
)

func errorReply(msg string) []byte {
	return respio.EncodeError(msg)
}

func okReply() []byte {
	return respio.EncodeSimpleString("OK")
}

func bulkReply(b []byte) []byte {
	if b == nil {
		return respio.EncodeNullBulk()
	}
	return respio.EncodeBulkString(b)
}

func arrayReply(items [][]byte) []byte {
	return respio.EncodeArray(items)
}

func encodeBulkStringArg(b []byte) []byte {
	return respio.EncodeBulkString(b)
}

func encodeArrayArg(items [][]byte) []byte {
	return respio.EncodeArray(items)
}

func errWrongArgs(name string) []byte {
	return errorReply(fmt.Sprintf("ERR wrong number of arguments for '%s' command", name))
}

func errUnknownSubcommand(cmd, sub string) []byte {
	return errorReply(fmt.Sprintf("ERR unknown subcommand '%s' for '%s'", sub, cmd))
}

func errNotInteger() []byte {
	return errorReply("ERR value is not an integer or out of range")
}

func errWrongType() []byte {
	return errorReply("WRONGTYPE Operation against a key holding the wrong kind of value")
}
