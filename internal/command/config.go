package command

import "strings"

// cmdConfig implements CONFIG GET parameter. Only "dir" and "dbfilename"
// are recognized, matching the RDB-location parameters spec.md requires a
// client be able to query; any other parameter name replies with an empty
// array rather than an error, matching real Redis's CONFIG GET semantics
// for unknown parameters.
func (d *Dispatcher) cmdConfig(args [][]byte) []byte {
	if len(args) < 2 {
		return errWrongArgs("config")
	}
	sub := strings.ToUpper(string(args[1]))
	switch sub {
	case "GET":
		return d.cmdConfigGet(args)
	default:
		return errUnknownSubcommand("config", sub)
	}
}

func (d *Dispatcher) cmdConfigGet(args [][]byte) []byte {
	if len(args) != 3 {
		return errWrongArgs("config|get")
	}
	param := strings.ToLower(string(args[2]))

	var value string
	switch param {
	case "dir":
		value = d.Config.Dir
	case "dbfilename":
		value = d.Config.DBFilename
	default:
		return arrayReply(nil)
	}
	return arrayReply([][]byte{
		encodeBulkStringArg(args[2]),
		encodeBulkStringArg([]byte(value)),
	})
}
