package feed

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/swarmforge/feedcore/feed/lookup"
	"github.com/swarmforge/feedcore/signer"
	"github.com/swarmforge/feedcore/soc"
	"github.com/swarmforge/feedcore/storage"
)

const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

const startTime = uint64(1200000000)

// testStore wraps a MemStore counting fetches, to assert probe budgets
type testStore struct {
	*storage.MemStore
	fetchCount int
}

func newTestStore() *testStore {
	return &testStore{MemStore: storage.NewMemStore(0)}
}

func (s *testStore) Get(ctx context.Context, addr storage.Address) (storage.Chunk, error) {
	s.fetchCount++
	return s.MemStore.Get(ctx, addr)
}

// fakeTimeProvider makes "now" injectable
type fakeTimeProvider struct {
	currentTime uint64
}

func (f *fakeTimeProvider) Now() Timestamp {
	return Timestamp{Time: f.currentTime}
}

func setupTest(t *testing.T) (*testStore, *Handler, signer.Signer, *fakeTimeProvider) {
	t.Helper()
	clock := &fakeTimeProvider{currentTime: startTime}
	prev := TimestampProvider
	TimestampProvider = clock
	t.Cleanup(func() { TimestampProvider = prev })

	store := newTestStore()
	t.Cleanup(func() { store.Close() })

	sg, err := signer.FromHex(testKeyHex)
	if err != nil {
		t.Fatal(err)
	}
	return store, NewHandler(store), sg, clock
}

// publish writes n chained sequence updates "update 0".."update n-1"
func publish(t *testing.T, h *Handler, sg signer.Signer, fd Feed, n int) {
	t.Helper()
	var prior Index
	for i := 0; i < n; i++ {
		_, index, err := h.Update(context.Background(), sg, fd, prior, []byte("update "+SequenceIndex(i).String()))
		if err != nil {
			t.Fatal(err)
		}
		prior = index
	}
}

func TestUpdateAndReadAt(t *testing.T) {
	_, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)
	publish(t, h, sg, fd, 3)

	for i := 0; i < 3; i++ {
		payload, err := h.ReadAt(context.Background(), fd, SequenceIndex(i))
		if err != nil {
			t.Fatal(err)
		}
		want := []byte("update " + SequenceIndex(i).String())
		if !bytes.Equal(payload, want) {
			t.Fatalf("expected %q at index %d, got %q", want, i, payload)
		}
	}

	if _, err := h.ReadAt(context.Background(), fd, SequenceIndex(3)); Code(err) != ErrIndexNotFound {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestUpdateRejectsForeignFeed(t *testing.T) {
	_, h, sg, _ := setupTest(t)
	other, err := signer.FromHex("8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f")
	if err != nil {
		t.Fatal(err)
	}
	fd := New(NewTopic("test-topic"), other.Address(), Sequence)
	if _, _, err := h.Update(context.Background(), sg, fd, nil, []byte("intrusion")); Code(err) != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	store, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)

	addr1, index1, err := h.Update(context.Background(), sg, fd, nil, []byte("same update"))
	if err != nil {
		t.Fatal(err)
	}
	// same prior index and payload: the very same chunk lands on the very
	// same address
	addr2, index2, err := NewHandler(store).Update(context.Background(), sg, fd, nil, []byte("same update"))
	if err != nil {
		t.Fatal(err)
	}
	if !addr1.Equal(addr2) || index1 != index2 {
		t.Fatalf("expected identical address and index, got %s/%s and %s/%s", addr1, index1, addr2, index2)
	}
}

func TestReadLatestSequence(t *testing.T) {
	store, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)
	publish(t, h, sg, fd, 5) // indices 0..4 present, 5 missing

	// use a fresh handler so the cache cannot shortcut the search
	reader := NewHandler(store)
	store.fetchCount = 0
	payload, index, err := reader.ReadLatest(context.Background(), fd)
	if err != nil {
		t.Fatal(err)
	}
	if index != SequenceIndex(4) {
		t.Fatalf("expected latest index 4, got %s", index)
	}
	if !bytes.Equal(payload, []byte("update 4")) {
		t.Fatalf("unexpected latest payload %q", payload)
	}
	// exponential + binary search: probes 0,1,3,7,5,4
	if store.fetchCount > 8 {
		t.Fatalf("expected O(log n) fetches, got %d", store.fetchCount)
	}
}

func TestReadLatestSequenceUsesCache(t *testing.T) {
	store, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)
	publish(t, h, sg, fd, 5)

	// the writing handler knows the latest index already
	store.fetchCount = 0
	_, index, err := h.ReadLatest(context.Background(), fd)
	if err != nil {
		t.Fatal(err)
	}
	if index != SequenceIndex(4) {
		t.Fatalf("expected latest index 4, got %s", index)
	}
	if store.fetchCount > 3 {
		t.Fatalf("expected the cache to bound probing, got %d fetches", store.fetchCount)
	}
}

func TestReadLatestEmptyFeed(t *testing.T) {
	_, h, sg, _ := setupTest(t)
	fd := New(NewTopic("no-such-topic"), sg.Address(), Sequence)
	if _, _, err := h.ReadLatest(context.Background(), fd); Code(err) != ErrFeedNotFound {
		t.Fatalf("expected ErrFeedNotFound, got %v", err)
	}
}

func TestReadLatestEpoch(t *testing.T) {
	store, h, sg, clock := setupTest(t)
	fd := New(NewTopic("epoch-topic"), sg.Address(), Epoch)

	_, index1, err := h.Update(context.Background(), sg, fd, nil, []byte("epoch update 0"))
	if err != nil {
		t.Fatal(err)
	}
	clock.currentTime += 10
	_, index2, err := h.Update(context.Background(), sg, fd, index1, []byte("epoch update 1"))
	if err != nil {
		t.Fatal(err)
	}
	e1, e2 := index1.(lookup.Epoch), index2.(lookup.Epoch)
	if e1.Level != 0 || e2.Level != 1 {
		t.Fatalf("expected descent from level 0 to 1, got %s then %s", e1, e2)
	}

	// with ancestors at levels 0 and 1 present, latest must resolve to level 1
	clock.currentTime += 10
	reader := NewHandler(store)
	payload, index, err := reader.ReadLatest(context.Background(), fd)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, []byte("epoch update 1")) {
		t.Fatalf("unexpected latest payload %q", payload)
	}
	if !index.(lookup.Epoch).Equals(e2) {
		t.Fatalf("expected epoch %s, got %s", e2, index)
	}
}

func TestTamperedUpdate(t *testing.T) {
	store, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)
	publish(t, h, sg, fd, 2)

	// corrupt the stored chunk at index 1
	addr, err := fd.UpdateAddr(SequenceIndex(1))
	if err != nil {
		t.Fatal(err)
	}
	ch, err := store.Get(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	corrupted := append([]byte{}, ch.Data()...)
	corrupted[len(corrupted)-1] ^= 0x01
	if err := store.Put(context.Background(), storage.NewChunk(addr, corrupted)); err != nil {
		t.Fatal(err)
	}

	// direct reads surface the authentication failure
	if _, err := h.ReadAt(context.Background(), fd, SequenceIndex(1)); !errors.Is(err, soc.ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}

	// resolution treats the invalid chunk like a missing one
	reader := NewHandler(store)
	_, index, err := reader.ReadLatest(context.Background(), fd)
	if err != nil {
		t.Fatal(err)
	}
	if index != SequenceIndex(0) {
		t.Fatalf("expected the tampered update to be skipped, got index %s", index)
	}
}
