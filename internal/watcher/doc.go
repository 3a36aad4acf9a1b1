// Package watcher runs the brewnotify background service.
//
// A Watcher owns the live outdated-package tracker and wires it to the
// notifier, the SQLite store and the config files:
//
//   - the scheduler fires a notifier cycle every schedule.interval, with up
//     to schedule.tolerance of jitter
//   - every change to the live set is persisted, so a restarted daemon
//     compares against what it last saw instead of an empty set
//   - every cycle, background or manual, is recorded in the check history
//   - delivered notifications are recorded alongside the checks
//   - edits to config.toml or the ignore list are applied without a restart
//
// The same wiring serves one-shot CLI commands: `brewnotify check` builds a
// Watcher, restores the persisted set and calls CheckNow without starting
// the scheduler.
//
// Example usage:
//
//	st, err := store.Open(dbPath)
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	w, err := watcher.New(st, outdated.NewBrewQuery(client), sink, cfg)
//	if err != nil {
//		return err
//	}
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
//	defer w.Stop()
package watcher
