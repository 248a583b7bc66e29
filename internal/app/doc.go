// Package app contains the core application logic. It wires configuration,
// logging, the operation registry and the compiler together, decoupled from
// any specific entrypoint like the CLI.
package app
