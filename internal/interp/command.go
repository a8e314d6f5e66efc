package interp

import (
	"os"
	"strings"

	"github.com/hostbridge/pybridge-go/internal/config"
)

// BuildArgs constructs the interpreter command arguments for a target
// module or script.
//
// Output is run unbuffered (-u) so protocol lines reach the host as soon
// as the interpreter prints them; block buffering on a pipe would stall
// event delivery.
func BuildArgs(target string, options *config.Options) []string {
	args := []string{"-u"}

	if options.Bootstrap != "" {
		args = append(args, options.Bootstrap, target)
	} else if strings.HasSuffix(target, ".py") {
		args = append(args, target)
	} else {
		args = append(args, "-m", target)
	}

	return append(args, options.Args...)
}

// BuildEnvironment constructs the subprocess environment.
// The host environment is inherited and extended with the caller's additions.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	env = append(env, "PYTHONUNBUFFERED=1")

	for key, value := range options.Env {
		env = append(env, key+"="+value)
	}

	return env
}
