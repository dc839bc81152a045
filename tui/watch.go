package tui

import "hue-beat/state"

// Watch turns store notifications into a wake-up channel. Bursts of
// changes collapse into one pending signal.
func Watch(store *state.Store) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	cancel := store.Subscribe(func(state.Change) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, cancel
}
