package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/etnz/tracker/logger"
)

// Environment passed to extensions, also read as defaults of the global flags.
const (
	EnvConfig  = "PT_CONFIG"
	EnvProfile = "PT_PROFILE"
	EnvVerbose = "PT_VERBOSE"
)

// extensionLog receives the debug logs of extension lookups.
var extensionLog io.Writer = os.Stderr

// RunExtension attempts to find and execute an external pt-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found or executed.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "pt-" + subcommand

	// Look for the external command in PATH
	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		if *Verbose {
			log := logger.New(logger.Config{Level: "debug", Pretty: true, Output: extensionLog})
			log.Debug().Str("command", externalCmdName).Err(err).Msg("external command not found in PATH")
		}
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// Pass global flags as environment variables
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, EnvConfig+"="+*configPath)
	cmd.Env = append(cmd.Env, EnvProfile+"="+*profileName)
	cmd.Env = append(cmd.Env, EnvVerbose+"="+strconv.FormatBool(*Verbose))

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				return true, status.ExitStatus()
			}
		}
		// If it's not an ExitError or we can't get the status, report a generic error
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)

		return true, 1 // Indicate that an attempt was made, but it failed
	}

	return true, 0
}
