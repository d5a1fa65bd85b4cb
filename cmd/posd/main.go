// Command posd is a thin CLI over the PoS core (§6 "CLI surface"). It is
// not part of the core state machine: each invocation replays a JSON
// operation log into a fresh in-memory Core, applies one operation, and
// appends it to the log, standing in for a host that would otherwise keep
// the core wired against its own chain state across blocks.
//
// Usage:
//
//	posd genesis --state=state.json --validator=<addr>,<consensus_key_hex>,<stake>,<commission> [--validator=...]
//	posd bond --state=state.json --src=<addr> --val=<addr> --amount=<n>
//	posd unbond --state=state.json --src=<addr> --val=<addr> --amount=<n>
//	posd withdraw --state=state.json --src=<addr> --val=<addr>
//	posd become-validator --state=state.json --val=<addr> --consensus-key=<hex> --commission=<decimal>
//	posd unjail --state=state.json --val=<addr>
//	posd change-commission-rate --state=state.json --val=<addr> --rate=<decimal>
//	posd query --state=state.json --what=bonds|unbonds|state|slashes|addresses --src=<addr> --val=<addr>
//
// Every subcommand also accepts a global --log-format=text|json|color flag,
// selecting the rendering used for diagnostic log output on stderr.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/valterra/pos/pkg/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	args = setupLogging(args)
	if len(args) == 0 {
		printUsage()
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "genesis":
		err = cmdGenesis(rest)
	case "bond":
		err = cmdBond(rest)
	case "unbond":
		err = cmdUnbond(rest)
	case "withdraw":
		err = cmdWithdraw(rest)
	case "become-validator":
		err = cmdBecomeValidator(rest)
	case "unjail":
		err = cmdUnjail(rest)
	case "change-commission-rate":
		err = cmdChangeCommissionRate(rest)
	case "query":
		err = cmdQuery(rest)
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "posd: unknown command %q\n", cmd)
		printUsage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "posd: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: posd <genesis|bond|unbond|withdraw|become-validator|unjail|change-commission-rate|query> [flags]")
}

// setupLogging pulls every --log-format=<name> or --log-format <name> flag
// out of args, wherever it appears (before or after the subcommand name),
// installs a matching default logger (text when none is given), and returns
// the remaining args in their original order. Each subcommand's own flagSet
// does not know about the flag, so it is removed here.
func setupLogging(args []string) []string {
	format := "text"
	out := args[:0:0]
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--log-format" && i+1 < len(args):
			format = args[i+1]
			i++
		case strings.HasPrefix(a, "--log-format="):
			format = strings.TrimPrefix(a, "--log-format=")
		default:
			out = append(out, a)
		}
	}
	log.SetDefault(log.NewWithFormat(format, os.Stderr, slog.LevelInfo))
	return out
}
