// Package reaper removes stale worker containers that share a name prefix.
//
// Running containers are never removed. Each candidate is re-inspected right
// before removal and skipped if it started running or disappeared in the
// meantime; a small window between that inspect and the remove call remains
// and is accepted. Removal failures are collected instead of aborting the
// batch, so the Report always reflects what was actually removed.
package reaper
