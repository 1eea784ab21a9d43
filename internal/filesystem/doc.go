/*
Package filesystem provides resilient file access for the asset tree and a
recursive change watcher.

# Retry

StatWithRetry, OpenWithRetry, ReadFileWithRetry and ReadDirWithRetry wrap the
os equivalents and retry on NFS stale file handle errors (ESTALE) with
exponential backoff. Any other error is returned immediately.

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

Defaults are 3 retries starting at 50ms and capped at 500ms.

# Volumes

A VolumeResolver maps paths to volume labels ("assets", "database") so retry
and operation metrics can be broken down per mount.

# Watching

Watcher registers every non-hidden directory under a root with fsnotify and
calls a ChangeFunc for each created, written, removed or renamed file. New
directories are registered as they appear. The server uses it to drop cached
thumbnails whose source image changed.

# Metrics

The package records through an Observer set with SetObserver. The metrics
package supplies the Prometheus implementation; without one, recording is a
no-op.
*/
package filesystem
