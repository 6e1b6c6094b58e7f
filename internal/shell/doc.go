// Package shell runs external programs (ansible, ansible-playbook, sudo,
// kollacli itself) on behalf of the CLI.
//
// Callers depend on the Executor interface so that tests can substitute a
// recorder for the real process runner.
package shell
