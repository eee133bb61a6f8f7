package signup

import (
	"sync"
	"time"
)

// Cooldown counts a number of seconds down, one per tick, on its own
// goroutine. Stop cancels it and waits for the goroutine to exit, so a
// stopped Cooldown never fires again. A nil *Cooldown is inactive.
type Cooldown struct {
	stop      chan struct{}
	done      chan struct{}
	mu        sync.Mutex
	stopOnce  sync.Once
	remaining int
}

// StartCooldown begins counting down from seconds.
func StartCooldown(seconds int, tick time.Duration) *Cooldown {
	c := &Cooldown{
		remaining: seconds,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if seconds <= 0 {
		c.remaining = 0
		close(c.done)
		return c
	}
	go c.run(tick)
	return c
}

func (c *Cooldown) run(tick time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.remaining--
			left := c.remaining
			c.mu.Unlock()
			if left <= 0 {
				return
			}
		}
	}
}

// Remaining returns the seconds left, 0 once expired or stopped.
func (c *Cooldown) Remaining() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}

// Active reports whether the cooldown is still counting.
func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

// Done is closed when the countdown goroutine has exited.
func (c *Cooldown) Done() <-chan struct{} {
	return c.done
}

// Stop cancels the countdown and waits for its goroutine. Safe to call more
// than once and on a nil receiver.
func (c *Cooldown) Stop() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done

	c.mu.Lock()
	c.remaining = 0
	c.mu.Unlock()
}
