package state

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ProposeUpgrade registers a governance proposal and returns it with its
// newly assigned id.
func (s *State) ProposeUpgrade(proposer string, description string) (Proposal, error) {
	if description == "" {
		return Proposal{}, fmt.Errorf("proposal needs a description")
	}

	p := Proposal{
		ID:          uuid.NewString(),
		Proposer:    proposer,
		Description: description,
	}

	s.mu.Lock()
	s.proposals[p.ID] = &p
	s.mu.Unlock()

	s.evHandler("state: governance: proposal[%s] by %s", p.ID, proposer)
	return p, nil
}

// VoteUpgrade adds the voter's total stake across every shard to a
// proposal's tally. An account with nothing staked casts a zero-weight
// vote, which is accepted but moves nothing.
func (s *State) VoteUpgrade(voter string, proposalID string) (int64, error) {
	weight := s.totalStake(voter)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.proposals[proposalID]
	if !exists {
		return 0, ErrUnknownProposal
	}

	p.Votes += weight
	return p.Votes, nil
}

// Proposals returns the current governance proposals ordered by id.
func (s *State) Proposals() []Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposals := make([]Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		proposals = append(proposals, *p)
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].ID < proposals[j].ID })
	return proposals
}

// totalStake sums an account's staked funds across all shards.
func (s *State) totalStake(account string) int64 {
	s.mu.Lock()
	shards := make([]*shardState, 0, len(s.shards))
	for _, ss := range s.shards {
		shards = append(shards, ss)
	}
	s.mu.Unlock()

	var total int64
	for _, ss := range shards {
		ss.mu.Lock()
		total += ss.stakes[account]
		ss.mu.Unlock()
	}

	return total
}
