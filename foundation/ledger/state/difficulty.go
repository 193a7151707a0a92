package state

// adjustWindow is the number of recent blocks whose timestamp deltas
// feed the difficulty controller.
const adjustWindow = 12

// AdjustDifficulty retunes one shard against the target block time and
// returns the resulting difficulty. The controller sums the timestamp
// deltas across the recent window: a window that completed faster than
// one target interval raises difficulty by one, a window slower than
// twice the target lowers it, never below one.
func (s *State) AdjustDifficulty(shardID string) int {
	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	s.adjustDifficulty(ss)
	return ss.difficulty
}

// adjustDifficulty implements the controller. Callers hold the shard
// lock.
func (s *State) adjustDifficulty(ss *shardState) {
	if len(ss.blocks) < 2 {
		return
	}

	window := ss.blocks
	if len(window) > adjustWindow {
		window = window[len(window)-adjustWindow:]
	}

	elapsed := window[len(window)-1].Timestamp - window[0].Timestamp
	target := s.genesis.TargetBlockTime

	switch {
	case elapsed < target:
		ss.difficulty++
		s.evHandler("state: difficulty: shard[%s] raised to %d", ss.id, ss.difficulty)

	case elapsed > 2*target && ss.difficulty > 1:
		ss.difficulty--
		s.evHandler("state: difficulty: shard[%s] lowered to %d", ss.id, ss.difficulty)
	}
}
