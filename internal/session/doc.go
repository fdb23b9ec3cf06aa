// Package session provides conversation history persistence with PostgreSQL.
//
// A session is a conversation context containing ordered messages exchanged
// between user and model. [Store] handles persistence; the chat assistant
// handles conversation logic.
//
// Key operations:
//
//   - Session lifecycle: [Store.CreateSession], [Store.Session], [Store.Sessions], [Store.Rename], [Store.DeleteSession], [Store.ResolveCurrentSession]
//   - Message persistence: [Store.AddMessages], [Store.Messages]
//   - Assistant integration: [Store.History], [Store.AppendMessages]
//
// # Transaction Safety
//
// [Store.AddMessages] uses SELECT ... FOR UPDATE to lock the session row,
// so concurrent appenders serialize instead of racing on sequence numbers.
// If any step fails, the whole transaction rolls back.
//
// # Concurrency
//
// Store is safe for concurrent use. All state lives in PostgreSQL; no
// shared Go-side state exists.
//
// # Local State
//
// [SaveCurrentSessionID] and [LoadCurrentSessionID] persist the active
// session to ~/.haku/current_session using atomic writes (temp file plus
// rename) guarded by [github.com/gofrs/flock] file locking.
package session
