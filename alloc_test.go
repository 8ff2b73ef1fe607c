package equeue

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrors(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrBufferTooSmall)
	_, err = New(EventHeaderSize - 1)
	require.ErrorIs(t, err, ErrBufferTooSmall)
	_, err = NewInPlace(nil)
	require.ErrorIs(t, err, ErrBufferTooSmall)
	_, err = New(1024, WithClock(nil))
	require.ErrorIs(t, err, ErrNilClock)
	_, err = New(1024, WithMaxEvents(-1))
	require.ErrorIs(t, err, ErrInvalidParameters)

	q, err := New(1024)
	require.NoError(t, err)
	defer q.Destroy()
	_, err = q.Alloc(-1)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestChunkSize(t *testing.T) {
	for size := 0; size < 1000; size++ {
		c := ChunkSize(size)
		assert.Zero(t, c%ChunkAlign, "chunk %d not aligned", c)
		assert.GreaterOrEqual(t, c, size+EventHeaderSize)
		assert.Less(t, c, size+EventHeaderSize+ChunkAlign)
	}
}

func TestAllocNoOverlap(t *testing.T) {
	const iterations = 20000
	sizes := []int{0, 1, 8, 24, 40, 100, 250}
	q, _ := newManualQueue(t, 8192, 0)

	type live struct {
		e   *Event
		tag byte
	}
	var lives []live
	tag := byte(0)

	overlaps := func(e *Event) bool {
		for _, l := range lives {
			if e.off < l.e.off+l.e.size && l.e.off < e.off+e.size {
				return true
			}
		}
		return false
	}

	for i := 0; i < iterations; i++ {
		if len(lives) > 0 && rand.Intn(2) == 0 {
			n := rand.Intn(len(lives))
			l := lives[n]
			for j, b := range l.e.Data() {
				if b != l.tag {
					t.Fatalf("payload of slot %d overwritten at %d:"+
						" 0x%x != 0x%x (seed %d)\n",
						l.e.idx, j, b, l.tag, seed)
				}
			}
			q.Dealloc(l.e)
			lives[n] = lives[len(lives)-1]
			lives = lives[:len(lives)-1]
		} else {
			size := sizes[rand.Intn(len(sizes))]
			e, err := q.Alloc(size)
			if err != nil {
				require.ErrorIs(t, err, ErrOutOfMemory)
				continue
			}
			require.Len(t, e.Data(), size)
			require.False(t, overlaps(e), "overlapping chunk at %d", e.off)
			for _, b := range e.Data() {
				require.Zero(t, b, "payload not zeroed")
			}
			tag++
			for j := range e.Data() {
				e.Data()[j] = tag
			}
			lives = append(lives, live{e, tag})
		}

		if i%100 == 0 {
			st := q.Stats()
			used := 0
			for _, l := range lives {
				used += l.e.size
			}
			require.Equal(t, st.Capacity-st.TailFree, used+st.FreeBytes,
				"carved memory != live + free (seed %d)", seed)
			require.LessOrEqual(t, used+st.FreeBytes, st.Capacity)
			checkLists(t, q)
		}
	}
}

func TestAllocOOMReuse(t *testing.T) {
	sizes := []int{8, 64, 200}
	capacity := 0
	for _, s := range sizes {
		capacity += 3 * ChunkSize(s)
	}
	q, _ := newManualQueue(t, capacity+ChunkSize(0)-1, 0)

	var evs []*Event
	for i := 0; ; i++ {
		e, err := q.Alloc(sizes[i%len(sizes)])
		if err != nil {
			require.ErrorIs(t, err, ErrOutOfMemory)
			break
		}
		evs = append(evs, e)
	}
	require.Len(t, evs, 9)

	// free a mid sized chunk
	mid := evs[4]
	require.Equal(t, 64, mid.Size())
	off := mid.off
	tail := q.Stats().TailFree
	q.Dealloc(mid)
	require.Equal(t, 1, q.Stats().FreeChunks)

	e, err := q.Alloc(64)
	require.NoError(t, err)
	assert.Equal(t, off, e.off, "chunk not re-used")
	assert.Equal(t, tail, q.Stats().TailFree, "buffer tail touched")
	assert.Equal(t, 0, q.Stats().FreeChunks)

	// a smaller request can use a bigger free chunk
	q.Dealloc(e)
	e, err = q.Alloc(10)
	require.NoError(t, err)
	assert.Equal(t, off, e.off)
	assert.Equal(t, ChunkSize(64), e.ChunkSize())
	assert.Len(t, e.Data(), 10)

	// but not the other way around
	q.Dealloc(e)
	_, err = q.Alloc(300)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 1, q.Stats().FreeChunks)
}

func TestAllocFreeListSiblings(t *testing.T) {
	q, _ := newManualQueue(t, 16384, 0)
	sizes := []int{16, 32, 16, 64, 32, 16, 128, 64}
	var evs []*Event
	for _, s := range sizes {
		e, err := q.Alloc(s)
		require.NoError(t, err)
		evs = append(evs, e)
	}
	rand.Shuffle(len(evs), func(i, j int) { evs[i], evs[j] = evs[j], evs[i] })
	for _, e := range evs {
		q.Dealloc(e)
		checkLists(t, q)
	}
	st := q.Stats()
	assert.Equal(t, len(sizes), st.FreeChunks)

	// 4 distinct sizes in the main list
	n := 0
	for c := q.chunks; c != nil; c = c.next {
		n++
	}
	assert.Equal(t, 4, n)

	// first fit: the smallest chunk big enough
	e, err := q.Alloc(20)
	require.NoError(t, err)
	assert.Equal(t, ChunkSize(32), e.ChunkSize())
}

func TestAllocMaxEvents(t *testing.T) {
	q, err := New(4096, WithMaxEvents(2), WithClock(&manualClock{}))
	require.NoError(t, err)
	defer q.Destroy()
	_, err = q.Alloc(0)
	require.NoError(t, err)
	e, err := q.Alloc(0)
	require.NoError(t, err)
	_, err = q.Alloc(0)
	require.ErrorIs(t, err, ErrOutOfMemory)
	q.Dealloc(e)
	_, err = q.Alloc(0)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Stats().MaxChunks)
}

func TestDeallocDtor(t *testing.T) {
	q, _ := newManualQueue(t, 1024, 0)
	e, err := q.Alloc(8)
	require.NoError(t, err)
	calls := 0
	e.SetDtor(func(d *Event) {
		calls++
		assert.Equal(t, e, d)
	})
	q.Dealloc(e)
	assert.Equal(t, 1, calls)
	// double free is detected and ignored
	q.Dealloc(e)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, q.Stats().FreeChunks)

	// a recycled chunk does not keep the old destructor
	e, err = q.Alloc(8)
	require.NoError(t, err)
	q.Dealloc(e)
	assert.Equal(t, 1, calls)
}

func TestAllocTooBig(t *testing.T) {
	const size = 4096
	huge := []int{math.MaxInt, math.MaxInt - 10, math.MaxInt - EventHeaderSize,
		math.MaxInt32, size - EventHeaderSize + 1, size}
	q, _ := newManualQueue(t, size, 0)
	for _, s := range huge {
		_, err := q.Alloc(s)
		require.ErrorIs(t, err, ErrOutOfMemory, "size %d", s)
	}
	assert.Zero(t, q.Stats().Chunks)
	assert.Equal(t, size, q.Stats().TailFree)

	// a free chunk is not handed out for an impossible size either
	e, err := q.Alloc(8)
	require.NoError(t, err)
	q.Dealloc(e)
	tail := q.Stats().TailFree
	for _, s := range huge {
		_, err := q.Alloc(s)
		require.ErrorIs(t, err, ErrOutOfMemory, "size %d", s)
	}
	st := q.Stats()
	assert.Equal(t, 1, st.FreeChunks)
	assert.Equal(t, tail, st.TailFree)

	// the whole buffer in one event
	q2, _ := newManualQueue(t, size, 0)
	e, err = q2.Alloc(size - EventHeaderSize)
	require.NoError(t, err)
	assert.Equal(t, size-EventHeaderSize, e.Size())
	assert.Equal(t, size, e.ChunkSize())
	assert.Len(t, e.Data(), size-EventHeaderSize)
}
