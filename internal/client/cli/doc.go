// Package cli implements the interactive sortedstorage client: a REPL over
// the storage, collaboration, search, and recent-items stores.
//
// The App type is the composition root. It wires the REST client, the
// WebSocket transport, the local SQLite repositories, and every store into
// one session, and renders notifications to the terminal as they arrive.
// Commands are dispatched by runREPL through the execIface seam so the loop
// can be tested with a stub executor.
package cli
