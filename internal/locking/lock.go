// Package locking provides a per-key advisory lock used to serialize boot
// and map-disk negotiations against the same Target, so two concurrent
// requests can't race on the iSCSI daemon's shared LUN table.
package locking

import (
	"context"
	"sync"
)

var (
	locksMu sync.Mutex
	locks   = map[string]chan struct{}{}
)

// LockFriendly acquires an advisory lock for key, blocking until it is
// available or ctx is cancelled.
//
// The first caller to acquire a fresh key gets friendly=false along with
// unlock and unlockFriendly functions it is responsible for calling
// exactly once. Callers that block behind an existing holder are woken by
// that holder's unlockFriendly call, receive friendly=true, and get nil
// unlock functions — releasing the lock was already done on their behalf.
func LockFriendly(ctx context.Context, key string) (friendly bool, unlock func(), unlockFriendly func(), err error) {
	for {
		locksMu.Lock()
		ch, held := locks[key]
		if !held {
			locks[key] = make(chan struct{})
			locksMu.Unlock()

			return false, unlockFunc(key, false), unlockFunc(key, true), nil
		}

		locksMu.Unlock()

		select {
		case <-ch:
			return true, nil, nil, nil
		case <-ctx.Done():
			return false, nil, nil, ctx.Err()
		}
	}
}

func unlockFunc(key string, broadcastFriendly bool) func() {
	var once sync.Once

	return func() {
		once.Do(func() {
			locksMu.Lock()
			ch, held := locks[key]
			delete(locks, key)
			locksMu.Unlock()

			if held && broadcastFriendly {
				close(ch)
			}
		})
	}
}
