package cache

// afterRead records a read in the caller's stripe and drains when the
// stripe has enough pending reads or a write is waiting.
func (m *boundedMap[K, V]) afterRead(n *node[K, V]) {
	tok := m.stripes.Get().(*stripeToken)
	idx := tok.idx
	m.stripes.Put(tok)

	b := &m.readBuffers[idx]
	wc := b.record(n)
	delayable := b.pending(wc) < readBufferThreshold
	if shouldDrain(m.drainStatus.Load(), delayable) {
		m.tryToDrainBuffers()
	}
	m.notifier.deliver()
}

// afterWrite queues a deque task and attempts a drain. The task is never
// lost: if the lock is busy, a later read or write runs it.
func (m *boundedMap[K, V]) afterWrite(t task[K, V]) {
	m.writeBuffer.Push(t)
	m.drainStatus.Store(required)
	m.tryToDrainBuffers()
	m.notifier.deliver()
}

// afterUpdate treats a same-weight update as a read and anything else as a
// write that adjusts the weighted size.
func (m *boundedMap[K, V]) afterUpdate(n *node[K, V], weightDiff int) {
	if weightDiff == 0 {
		m.afterRead(n)
		return
	}
	m.afterWrite(task[K, V]{kind: updateTask, node: n, weight: weightDiff})
}

// tryToDrainBuffers drains only if the eviction lock is free right now.
func (m *boundedMap[K, V]) tryToDrainBuffers() {
	if !m.evictionLock.TryLock() {
		return
	}
	defer m.evictionLock.Unlock()

	m.drainStatus.Store(processing)
	m.drainBuffers()
	if m.writeBuffer.Empty() {
		m.drainStatus.CompareAndSwap(processing, idle)
	} else {
		m.drainStatus.Store(required)
	}
}

// drainBuffers applies recorded reads, then queued writes.
// Requires the eviction lock.
func (m *boundedMap[K, V]) drainBuffers() {
	m.drainReadBuffers()
	m.drainWriteBuffer()
	m.metrics.Size(m.data.len(), m.WeightedSize())
}

func (m *boundedMap[K, V]) drainReadBuffers() {
	tok := m.stripes.Get().(*stripeToken)
	start := tok.idx
	m.stripes.Put(tok)

	for i := start; i < start+len(m.readBuffers); i++ {
		m.readBuffers[i&m.stripeMask].drain(m.applyRead)
	}
}

// flushWriteBuffer runs every queued write task. Used by the blocking
// operations that must observe a settled deque. Requires the eviction lock.
func (m *boundedMap[K, V]) flushWriteBuffer() {
	for {
		t, ok := m.writeBuffer.Pop()
		if !ok {
			return
		}
		m.runTask(t)
	}
}

func (m *boundedMap[K, V]) drainWriteBuffer() {
	for i := 0; i < writeBufferDrainThreshold; i++ {
		t, ok := m.writeBuffer.Pop()
		if !ok {
			return
		}
		m.runTask(t)
	}
}

// applyRead promotes n if it is still linked.
func (m *boundedMap[K, V]) applyRead(n *node[K, V]) {
	if m.deque.contains(n) {
		m.pol.OnGet(n)
	}
}

// runTask applies one deferred write. Requires the eviction lock.
func (m *boundedMap[K, V]) runTask(t task[K, V]) {
	n := t.node
	switch t.kind {
	case addTask:
		m.weightedSize.Add(int64(t.weight))
		// A node removed before its add task ran stays unlinked; its
		// removal task only releases the weight.
		if n.wv.Load().alive() {
			m.pol.OnAdd(n)
			m.evict()
		}
	case updateTask:
		m.weightedSize.Add(int64(t.weight))
		if m.deque.contains(n) {
			m.pol.OnUpdate(n)
		}
		m.evict()
	case removalTask:
		if m.deque.contains(n) {
			m.pol.OnRemove(n)
			m.deque.remove(n)
		}
		m.weightedSize.Add(-int64(n.kill()))
	}
}

func (m *boundedMap[K, V]) hasOverflowed() bool {
	return m.weightedSize.Load() > m.capacity.Load()
}

// evict removes victims until the weighted size fits the capacity.
// A victim that a concurrent Remove already took out of the table is
// still unlinked and killed, but not reported to the listener.
// Requires the eviction lock.
func (m *boundedMap[K, V]) evict() {
	for m.hasOverflowed() {
		v := m.pol.Victim()
		if v == nil {
			return
		}
		n := v.(*node[K, V])
		reason := EvictCapacity
		if n != m.deque.tail {
			reason = EvictPolicy
		}
		m.pol.OnRemove(n)
		m.deque.remove(n)
		if m.data.removeIf(n.key, n) {
			m.notifier.enqueue(n, reason)
			m.metrics.Evict(reason)
		}
		m.weightedSize.Add(-int64(n.kill()))
	}
}
