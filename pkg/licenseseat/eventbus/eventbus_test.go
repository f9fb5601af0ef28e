package eventbus

import "testing"

func TestEmit_DeliversInSubscriptionOrder(t *testing.T) {
	b := New(nil)
	var order []int
	b.On("topic", func(payload any) { order = append(order, 1) })
	b.On("topic", func(payload any) { order = append(order, 2) })
	b.On("topic", func(payload any) { order = append(order, 3) })

	b.Emit("topic", nil)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("handlers did not fire in subscription order: %v", order)
	}
}

func TestEmit_PassesPayload(t *testing.T) {
	b := New(nil)
	var got any
	b.On("topic", func(payload any) { got = payload })
	b.Emit("topic", "hello")
	if got != "hello" {
		t.Errorf("got payload %v, want %q", got, "hello")
	}
}

func TestEmit_UnknownTopicIsNoop(t *testing.T) {
	b := New(nil)
	b.Emit("nothing-subscribed", 42) // must not panic
}

func TestEmit_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	var logged string
	b := New(func(format string, args ...any) { logged = format })

	var secondCalled bool
	b.On("topic", func(payload any) { panic("boom") })
	b.On("topic", func(payload any) { secondCalled = true })

	b.Emit("topic", nil)

	if !secondCalled {
		t.Error("second handler should still run after first panics")
	}
	if logged == "" {
		t.Error("panic should be logged")
	}
}

func TestOff_RemovesOnlyThatSubscription(t *testing.T) {
	b := New(nil)
	var aCalled, bCalled bool
	subA := b.On("topic", func(payload any) { aCalled = true })
	b.On("topic", func(payload any) { bCalled = true })

	b.Off(subA)
	b.Emit("topic", nil)

	if aCalled {
		t.Error("removed subscription should not fire")
	}
	if !bCalled {
		t.Error("remaining subscription should still fire")
	}
}

func TestOff_DuringEmitDoesNotDisturbOngoingDispatch(t *testing.T) {
	b := New(nil)
	var calls int
	var subB Subscription
	b.On("topic", func(payload any) {
		calls++
		b.Off(subB) // unsubscribe a handler mid-dispatch
	})
	subB = b.On("topic", func(payload any) { calls++ })

	b.Emit("topic", nil)
	if calls != 2 {
		t.Errorf("expected both handlers to run on the snapshot taken at Emit time, got %d calls", calls)
	}

	b.Emit("topic", nil)
	if calls != 3 {
		t.Errorf("expected only the surviving handler to run on the second emit, got %d total calls", calls)
	}
}

func TestClear_AllTopics(t *testing.T) {
	b := New(nil)
	var called bool
	b.On("a", func(payload any) { called = true })
	b.On("b", func(payload any) { called = true })

	b.Clear()
	b.Emit("a", nil)
	b.Emit("b", nil)

	if called {
		t.Error("Clear() with no args should remove every topic's handlers")
	}
}

func TestClear_SpecificTopics(t *testing.T) {
	b := New(nil)
	var aCalled, bCalled bool
	b.On("a", func(payload any) { aCalled = true })
	b.On("b", func(payload any) { bCalled = true })

	b.Clear("a")
	b.Emit("a", nil)
	b.Emit("b", nil)

	if aCalled {
		t.Error("cleared topic should not fire")
	}
	if !bCalled {
		t.Error("untouched topic should still fire")
	}
}
