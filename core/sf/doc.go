// Package sf is a typed wrapper around golang.org/x/sync/singleflight.
//
//	spawns := sf.New[actor.Actor]()
//
//	// concurrent callers for "unit-1" share one spawn
//	a, err := spawns.Do("unit-1", func() (*actor.Actor, error) {
//	    return actor.Spawn(worker)
//	})
package sf
