package state

import (
	"fmt"
)

// Stake moves part of an account's spendable balance into its staked
// position for the account's shard. Staked funds still belong to the
// account but cannot be spent until unstaked.
func (s *State) Stake(account string, shardID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("stake amount must be positive")
	}

	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.balances[account] < amount {
		return ErrInsufficientBalance
	}

	ss.balances[account] -= amount
	ss.stakes[account] += amount

	s.evHandler("state: stake: account[%s] shard[%s] amount[%d] staked[%d]", account, shardID, amount, ss.stakes[account])
	return nil
}

// Unstake returns staked funds to the spendable balance.
func (s *State) Unstake(account string, shardID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("unstake amount must be positive")
	}

	ss := s.getShard(shardID)

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.stakes[account] < amount {
		return fmt.Errorf("unstake %d exceeds staked %d", amount, ss.stakes[account])
	}

	ss.stakes[account] -= amount
	ss.balances[account] += amount

	return nil
}
