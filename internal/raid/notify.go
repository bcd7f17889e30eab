package raid

// Notification announces that a raid changed phase. Raid is a private copy
// taken at the moment of the change.
type Notification struct {
	RaidID   string `json:"raid_id"`
	RaidName string `json:"raid_name"`
	From     Phase  `json:"from,omitempty"` // empty when the raid was just created
	To       Phase  `json:"to"`
	Day      int    `json:"day"`
	Raid     *Raid  `json:"raid"`
}

// Subscribe registers fn to receive every phase change. Notifications are
// delivered after the engine releases its lock, in the order they happened,
// so fn may call back into the engine. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(Notification)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// queue records a phase change for delivery. Callers hold e.mu.
func (e *Engine) queue(r *Raid, from Phase) {
	if len(e.subscribers) == 0 {
		return
	}
	e.pending = append(e.pending, Notification{
		RaidID:   r.ID,
		RaidName: r.Name,
		From:     from,
		To:       r.Phase,
		Day:      e.day,
		Raid:     r.Clone(),
	})
}

// unlockAndNotify releases e.mu and then hands queued notifications to the
// subscribers registered at that moment.
func (e *Engine) unlockAndNotify() {
	notes := e.pending
	e.pending = nil
	subs := make([]func(Notification), 0, len(e.subscribers))
	for i := 0; i < e.nextSub; i++ {
		if fn, ok := e.subscribers[i]; ok {
			subs = append(subs, fn)
		}
	}
	e.mu.Unlock()

	for _, n := range notes {
		for _, fn := range subs {
			fn(n)
		}
	}
}
