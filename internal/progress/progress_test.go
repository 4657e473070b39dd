package progress

import (
	"testing"

	"github.com/christikaes/macaroni-arch/internal/dsm"
)

func TestOrderedDelivery(t *testing.T) {
	sink, ch := New(8)

	sink.Send("cloning")
	sink.Send("analyzing")
	sink.Complete(&dsm.Payload{Branch: "main"})

	var frames []Frame
	for f := range ch {
		frames = append(frames, f)
	}

	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Message != "cloning" || frames[1].Message != "analyzing" {
		t.Errorf("progress frames out of order: %v", frames)
	}
	if frames[2].Kind != KindComplete || frames[2].Payload.Branch != "main" {
		t.Errorf("expected terminal complete frame, got %v", frames[2])
	}
}

func TestDropUnderBackpressure(t *testing.T) {
	sink, ch := New(2)

	for i := 0; i < 10; i++ {
		sink.Send("tick")
	}
	if sink.Dropped() != 8 {
		t.Errorf("expected 8 dropped frames, got %d", sink.Dropped())
	}

	go sink.Fail("cancelled")

	var last Frame
	count := 0
	for f := range ch {
		last = f
		count++
	}
	if count != 3 {
		t.Errorf("expected 2 buffered + 1 terminal frame, got %d", count)
	}
	if last.Kind != KindError || last.Message != "cancelled" {
		t.Errorf("expected terminal error frame, got %v", last)
	}
}

func TestSendAfterClose(t *testing.T) {
	sink, ch := New(4)
	sink.Fail("boom")
	sink.Send("late")
	sink.Complete(nil)

	count := 0
	for range ch {
		count++
	}
	if count != 1 {
		t.Errorf("expected only the terminal frame, got %d", count)
	}
}
