// arma is a short-form launcher for the armature CLI: it resolves the real
// binary and replaces itself with it, so flags, stdio and exit codes pass
// through untouched.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func main() {
	bin, err := exec.LookPath("armature")
	if err != nil {
		fmt.Fprintln(os.Stderr, "arma: cannot find armature on PATH; install it first")
		os.Exit(1)
	}
	argv := append([]string{"armature"}, os.Args[1:]...)
	if err := syscall.Exec(bin, argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "arma: exec %s: %v\n", bin, err)
		os.Exit(1)
	}
}
