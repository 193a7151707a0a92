package state

import (
	"testing"

	"github.com/ahmiyat/ahmiyat/foundation/ledger/database"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/genesis"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

// newBareState builds an engine with just enough wiring to exercise the
// difficulty controller without storage or mining.
func newBareState(gen genesis.Genesis) *State {
	return &State{
		genesis:   gen,
		shards:    make(map[string]*shardState),
		processed: make(map[string]struct{}),
		evHandler: func(v string, args ...any) {},
	}
}

// appendWindow places blocks with the given timestamps on a shard.
func appendWindow(ss *shardState, timestamps []int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for i, ts := range timestamps {
		ss.blocks = append(ss.blocks, database.Block{
			Index:     len(ss.blocks),
			Timestamp: ts,
			ShardID:   ss.id,
			Hash:      "hash-" + ss.id + "-" + string(rune('a'+i)),
		})
	}
}

func Test_Difficulty(t *testing.T) {
	gen := genesis.Genesis{
		MaxShards:         1,
		InitialDifficulty: 4,
		TargetBlockTime:   60_000,
	}

	t.Log("Given the need to retune mining difficulty per shard.")
	{
		t.Logf("\tTest 0:\tWhen a window of blocks completes faster than the target.")
		{
			s := newBareState(gen)
			ss := s.getShard("0")

			// Twelve blocks one millisecond apart: the window elapsed
			// 11,000 microseconds, well under one target interval.
			timestamps := make([]int64, 12)
			for i := range timestamps {
				timestamps[i] = 1_000_000 + int64(i)*1_000
			}
			appendWindow(ss, timestamps)

			got := s.AdjustDifficulty("0")
			if got != gen.InitialDifficulty+1 {
				t.Fatalf("\t%s\tTest 0:\tShould raise difficulty to %d, got %d.", failed, gen.InitialDifficulty+1, got)
			}
			t.Logf("\t%s\tTest 0:\tShould raise difficulty by one.", success)

			// Each retune looks at the same fast window, so the
			// difficulty keeps climbing one step at a time.
			got = s.AdjustDifficulty("0")
			if got != gen.InitialDifficulty+2 {
				t.Fatalf("\t%s\tTest 0:\tShould raise difficulty again to %d, got %d.", failed, gen.InitialDifficulty+2, got)
			}
			t.Logf("\t%s\tTest 0:\tShould raise difficulty one step per retune.", success)
		}

		t.Logf("\tTest 1:\tWhen a window of blocks completes slower than twice the target.")
		{
			s := newBareState(gen)
			ss := s.getShard("0")

			// Two blocks three target intervals apart.
			appendWindow(ss, []int64{1_000_000, 1_000_000 + 3*gen.TargetBlockTime})

			got := s.AdjustDifficulty("0")
			if got != gen.InitialDifficulty-1 {
				t.Fatalf("\t%s\tTest 1:\tShould lower difficulty to %d, got %d.", failed, gen.InitialDifficulty-1, got)
			}
			t.Logf("\t%s\tTest 1:\tShould lower difficulty by one.", success)
		}

		t.Logf("\tTest 2:\tWhen the window sits between the raise and lower bounds.")
		{
			s := newBareState(gen)
			ss := s.getShard("0")

			// Elapsed of exactly one and a half targets changes nothing.
			appendWindow(ss, []int64{1_000_000, 1_000_000 + gen.TargetBlockTime*3/2})

			got := s.AdjustDifficulty("0")
			if got != gen.InitialDifficulty {
				t.Fatalf("\t%s\tTest 2:\tShould hold difficulty at %d, got %d.", failed, gen.InitialDifficulty, got)
			}
			t.Logf("\t%s\tTest 2:\tShould hold difficulty steady.", success)
		}

		t.Logf("\tTest 3:\tWhen a slow chain is already at the minimum difficulty.")
		{
			floor := gen
			floor.InitialDifficulty = 1

			s := newBareState(floor)
			ss := s.getShard("0")

			appendWindow(ss, []int64{1_000_000, 1_000_000 + 10*gen.TargetBlockTime})

			got := s.AdjustDifficulty("0")
			if got != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould never drop below one, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 3:\tShould never drop below one.", success)
		}

		t.Logf("\tTest 4:\tWhen the shard has fewer than two blocks.")
		{
			s := newBareState(gen)
			ss := s.getShard("0")

			appendWindow(ss, []int64{1_000_000})

			got := s.AdjustDifficulty("0")
			if got != gen.InitialDifficulty {
				t.Fatalf("\t%s\tTest 4:\tShould leave difficulty untouched, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 4:\tShould leave difficulty untouched.", success)
		}

		t.Logf("\tTest 5:\tWhen the chain is longer than the controller window.")
		{
			s := newBareState(gen)
			ss := s.getShard("0")

			// Twenty blocks: the first eight crawled, the final twelve
			// raced. Only the recent window counts, so difficulty rises.
			timestamps := make([]int64, 20)
			for i := 0; i < 8; i++ {
				timestamps[i] = int64(i) * 10 * gen.TargetBlockTime
			}
			base := timestamps[7]
			for i := 8; i < 20; i++ {
				timestamps[i] = base + int64(i-7)*1_000
			}
			appendWindow(ss, timestamps)

			got := s.AdjustDifficulty("0")
			if got != gen.InitialDifficulty+1 {
				t.Fatalf("\t%s\tTest 5:\tShould judge only the recent window and raise to %d, got %d.", failed, gen.InitialDifficulty+1, got)
			}
			t.Logf("\t%s\tTest 5:\tShould judge only the recent window.", success)
		}
	}
}
