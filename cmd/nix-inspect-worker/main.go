// Command nix-inspect-worker is the worker half of nix-inspect as its own
// binary: the same as `nix-inspect worker`.
package main

import (
	"os"

	"github.com/bluskript/nix-inspect/pkg/cli"
)

func main() {
	args := append([]string{"worker"}, os.Args[1:]...)
	os.Exit(cli.Run(args, os.Stdin, os.Stdout, os.Stderr))
}
