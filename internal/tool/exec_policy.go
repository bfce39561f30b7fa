package tool

import "strings"

// argPolicy describes the per-command flags that could let the process
// operate outside its fixed working directory or elevate its scope. The
// check is argument-name-aware because each command's CLI surface differs;
// a generic blocklist cannot see that npm's --prefix and git's -C are the
// same escape hatch spelled differently.
type argPolicy struct {
	// blockedFlags are rejected as an exact token, as "<flag>=value", and
	// for short flags as the joined "<flag>value" form. Two-token forms
	// ("<flag> value") are covered by the exact-token match.
	blockedFlags []string
	// blockedFlagValues maps a flag to the specific value that elevates
	// scope; both "<flag> value" and "<flag>=value" forms are rejected, as
	// is the flag with its value missing (ambiguous, so rejected).
	blockedFlagValues map[string]string
}

// commandPolicies is the executable allowlist. A command absent from this
// table is not runnable at all.
var commandPolicies = map[string]argPolicy{
	"git": {
		blockedFlags: []string{"-C", "--git-dir", "--work-tree", "--exec-path"},
	},
	"npm": {
		blockedFlags:      []string{"-g", "--global", "--prefix", "--globalconfig", "--userconfig"},
		blockedFlagValues: map[string]string{"--location": "global"},
	},
	"node": {},
}

// AllowedCommands returns the executable allowlist in no particular order.
func AllowedCommands() []string {
	out := make([]string, 0, len(commandPolicies))
	for name := range commandPolicies {
		out = append(out, name)
	}
	return out
}

// checkCommandPolicy rejects commands outside the allowlist and arguments
// that would redirect the command away from its fixed working directory.
// Ambiguous-looking flags are rejected rather than given the benefit of the
// doubt.
func checkCommandPolicy(command string, args []string) error {
	policy, ok := commandPolicies[command]
	if !ok {
		return FailDetail(KindCommandNotAllowed,
			"command not allowed: "+command,
			map[string]any{"command": command})
	}

	for i, arg := range args {
		for _, flag := range policy.blockedFlags {
			if matchesFlag(arg, flag) {
				return disallowedArg(command, arg)
			}
		}
		for flag, value := range policy.blockedFlagValues {
			if arg == flag {
				// Two-token form. A trailing flag with no value is
				// malformed input, not a reason to run the command.
				if i+1 >= len(args) || strings.EqualFold(args[i+1], value) {
					return disallowedArg(command, arg)
				}
			}
			if strings.HasPrefix(arg, flag+"=") &&
				strings.EqualFold(strings.TrimPrefix(arg, flag+"="), value) {
				return disallowedArg(command, arg)
			}
		}
	}
	return nil
}

// matchesFlag reports whether arg is the flag itself, its "=value" form, or
// (for short flags like -C and -g) the joined "-Cvalue" form.
func matchesFlag(arg, flag string) bool {
	if arg == flag {
		return true
	}
	if strings.HasPrefix(arg, flag+"=") {
		return true
	}
	shortFlag := len(flag) == 2 && flag[0] == '-' && flag[1] != '-'
	if shortFlag && strings.HasPrefix(arg, flag) {
		return true
	}
	return false
}

func disallowedArg(command, arg string) *Failure {
	return FailDetail(KindDisallowedArgument,
		"argument not allowed for "+command+": "+arg,
		map[string]any{"command": command, "argument": arg})
}
