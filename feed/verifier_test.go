package feed

import (
	"context"
	"testing"

	"github.com/swarmforge/feedcore/feed/lookup"
)

func TestIsRetrievableLatest(t *testing.T) {
	_, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)

	ok, err := h.IsRetrievable(context.Background(), fd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected an empty feed to not be retrievable")
	}

	publish(t, h, sg, fd, 1)
	ok, err = h.IsRetrievable(context.Background(), fd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a published feed to be retrievable")
	}
}

func TestCheckChainSequence(t *testing.T) {
	store, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)
	publish(t, h, sg, fd, 5)

	status, err := h.CheckChain(context.Background(), fd, SequenceIndex(4))
	if err != nil {
		t.Fatal(err)
	}
	if !status.Retrievable {
		t.Fatalf("expected a complete chain, missing index %s", status.MissingIndex)
	}

	// punch a hole at index 2: the feed is no longer reconstructible even
	// though indices 0, 1, 3 and 4 still resolve
	addr, err := fd.UpdateAddr(SequenceIndex(2))
	if err != nil {
		t.Fatal(err)
	}
	store.Delete(addr)

	status, err = h.CheckChain(context.Background(), fd, SequenceIndex(4))
	if err != nil {
		t.Fatal(err)
	}
	if status.Retrievable {
		t.Fatal("expected a broken chain")
	}
	if status.MissingIndex != SequenceIndex(2) {
		t.Fatalf("expected the gap at index 2, got %s", status.MissingIndex)
	}

	ok, err := h.IsRetrievable(context.Background(), fd, SequenceIndex(4))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected IsRetrievable to report the broken chain")
	}

	// the chain up to the gap is still intact
	status, err = h.CheckChain(context.Background(), fd, SequenceIndex(1))
	if err != nil {
		t.Fatal(err)
	}
	if !status.Retrievable {
		t.Fatalf("expected the chain up to index 1 to be intact, missing %s", status.MissingIndex)
	}
}

func TestCheckChainLongSequence(t *testing.T) {
	// spans several concurrent probe windows
	store, h, sg, _ := setupTest(t)
	fd := New(NewTopic("test-topic"), sg.Address(), Sequence)
	publish(t, h, sg, fd, 30)

	status, err := h.CheckChain(context.Background(), fd, SequenceIndex(29))
	if err != nil {
		t.Fatal(err)
	}
	if !status.Retrievable {
		t.Fatalf("expected a complete chain, missing index %s", status.MissingIndex)
	}

	addr, err := fd.UpdateAddr(SequenceIndex(17))
	if err != nil {
		t.Fatal(err)
	}
	store.Delete(addr)

	status, err = h.CheckChain(context.Background(), fd, SequenceIndex(29))
	if err != nil {
		t.Fatal(err)
	}
	if status.Retrievable || status.MissingIndex != SequenceIndex(17) {
		t.Fatalf("expected the gap at index 17, got %v", status)
	}
}

func TestCheckChainEpoch(t *testing.T) {
	store, h, sg, clock := setupTest(t)
	fd := New(NewTopic("epoch-topic"), sg.Address(), Epoch)

	// three updates descending to level 2
	var prior Index
	var epochs []lookup.Epoch
	for i := 0; i < 3; i++ {
		_, index, err := h.Update(context.Background(), sg, fd, prior, []byte("update"))
		if err != nil {
			t.Fatal(err)
		}
		epochs = append(epochs, index.(lookup.Epoch))
		prior = index
		clock.currentTime++
	}
	target := epochs[2]
	if target.Level != 2 {
		t.Fatalf("expected the third update at level 2, got %s", target)
	}

	status, err := h.CheckChain(context.Background(), fd, target)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Retrievable {
		t.Fatalf("expected a complete ancestor chain, missing %s", status.MissingIndex)
	}

	// removing the level-1 ancestor breaks resolution of the level-2 target
	addr, err := fd.UpdateAddr(epochs[1])
	if err != nil {
		t.Fatal(err)
	}
	store.Delete(addr)

	status, err = h.CheckChain(context.Background(), fd, target)
	if err != nil {
		t.Fatal(err)
	}
	if status.Retrievable {
		t.Fatal("expected a broken ancestor chain")
	}
	if !status.MissingIndex.(lookup.Epoch).Equals(epochs[1]) {
		t.Fatalf("expected the gap at %s, got %s", epochs[1], status.MissingIndex)
	}
}
