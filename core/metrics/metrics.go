// Package metrics provides the backend-neutral metric types used by the loop
// and thread packages. Implementations live in adapters/ (Prometheus); the
// nop variants are the defaults when no backend is configured.
package metrics

// Timer measures one operation; ObserveDuration records the time elapsed since
// the timer was created:
//
//	defer m.HandlerDuration(name).ObserveDuration()
type Timer interface {
	ObserveDuration()
}
