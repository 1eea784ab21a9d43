// Package thumbcache holds derived thumbnails in memory.
//
// Cache is a generic, mutex-guarded store bounded by entry count and,
// softly, by a byte budget. Entries expire MaxAge after they were set and
// read as absent from then on. Eviction follows insertion order: reading an
// entry does not protect it, storing it again does.
//
// Keys are built with Key(source, size, quality, format) so every entry can
// be traced back to its source image. InvalidateSource drops all sizes of a
// source when the asset watcher sees it change.
//
// The server builds one Cache at startup and passes it to the display
// orchestrator, the HTTP handlers and the cache warmer. Nothing is persisted.
package thumbcache
