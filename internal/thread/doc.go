// Package thread persists follow-up conversations about a single feedback
// item: the reviewed source, the item text the conversation starts from,
// and every turn since. Threads only grow; turns are never edited or
// pruned.
//
// [SQLiteStore] keeps threads in a WAL-mode SQLite database; [MemoryStore]
// keeps them in process for tests and for servers without a configured path.
package thread
