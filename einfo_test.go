package equeue

import (
	"math/rand"
	"sync"
	"testing"
)

func TestEinfoOps(t *testing.T) {
	const iterations = 100000
	for i := 0; i < iterations; i++ {
		var x eInfo
		f0 := rand.Intn(256)
		mset := rand.Intn(256)
		mreset := rand.Intn(256)
		id := rand.Uint32()

		fRes := uint8(f0 & ^mreset | mset)
		mix := rand.Intn(5)
		switch mix {
		case 0:
			x.setAll(uint8(f0), 0)
			x.resetFlags(uint8(mreset))
			x.setFlags(uint8(mset))
			x.setID(id)
		case 1:
			x.setID(id)
			x.setAll(uint8(f0), id)
			x.chgFlags(uint8(mset), uint8(mreset))
		case 2:
			x.setAll(uint8(f0), 0)
			x.setID(id)
			x.resetFlags(uint8(mreset))
			x.setFlags(uint8(mset))
		case 3:
			var wg sync.WaitGroup
			x.setAll(uint8(f0), 0)
			wg.Add(2)
			go func() {
				x.resetFlags(uint8(mreset))
				x.setFlags(uint8(mset))
				wg.Done()
			}()
			go func() {
				x.setID(id)
				wg.Done()
			}()
			wg.Wait()
		case 4:
			var wg sync.WaitGroup
			x.setAll(uint8(f0), 0)
			wg.Add(2)
			go func() {
				x.setID(id)
				wg.Done()
			}()
			go func() {
				x.chgFlags(uint8(mset), uint8(mreset))
				wg.Done()
			}()
			wg.Wait()
		default:
			t.Fatalf("uncovered internal test case %d\n", mix)
		}
		if x.flags() != fRes {
			t.Errorf("flags mismatch, expected 0x%x, got 0x%x"+
				" 0x%x & ^0x%x | 0x%x  (mix %d)\n",
				fRes, x.flags(), f0, mreset, mset, mix)
		}
		if x.id() != id {
			t.Errorf("id mismatch, expected %d, got %d (mix %d)\n",
				id, x.id(), mix)
		}
	}
}

func TestEinfoIncID(t *testing.T) {
	var x eInfo
	x.setAll(fPosted, 1)
	for bits := uint(1); bits <= maxIDBits; bits++ {
		max := uint32(1<<bits - 1)
		x.setID(max - 1)
		if id := x.incID(bits); id != max {
			t.Errorf("incID(%d) from %d: got %d, expected %d\n",
				bits, max-1, id, max)
		}
		if id := x.incID(bits); id != 1 {
			t.Errorf("incID(%d) did not wrap to 1: got %d\n", bits, id)
		}
		if x.flags() != fPosted {
			t.Errorf("incID(%d) changed the flags: 0x%x\n", bits, x.flags())
		}
	}
}
