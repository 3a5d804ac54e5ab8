// Package watcher reloads files when they change on disk. It backs the
// context and goals file and the reference documents: edits made while a
// conversation runs reach the next request without a restart.
//
// fsnotify cannot watch a path that does not exist yet and loses the watch
// when an editor replaces a file by rename, so the parent directory is
// watched and events are filtered by name.
package watcher
