package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHub_FiltersByTableAndUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	userCart := hub.Subscribe(Filter{Table: TableCart, UserID: "u1"}, 4)
	allOrders := hub.Subscribe(Filter{Table: TableOrders}, 4)

	ctx := context.Background()
	require.NoError(t, hub.Notify(ctx, Change{Table: TableCart, Op: OpInsert, UserID: "u1", RowID: "l1"}))
	require.NoError(t, hub.Notify(ctx, Change{Table: TableCart, Op: OpInsert, UserID: "u2", RowID: "l2"}))
	require.NoError(t, hub.Notify(ctx, Change{Table: TableOrders, Op: OpDelete, UserID: "u2", RowID: "o1"}))

	got := <-userCart.C()
	assert.Equal(t, "l1", got.RowID)
	assert.Empty(t, userCart.C())

	got = <-allOrders.C()
	assert.Equal(t, "o1", got.RowID)
	assert.Empty(t, allOrders.C())
}

func TestHub_NotifyNeverBlocks(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe(Filter{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = hub.Notify(context.Background(), Change{Table: TableCart, UserID: "u1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notify blocked on a full subscriber")
	}
	assert.Len(t, sub.C(), 1)
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(Filter{}, 1)
	b := hub.Subscribe(Filter{}, 1)
	b.Close()
	b.Close()
	assert.Equal(t, 1, hub.Subscribers())

	hub.Close()
	hub.Close()

	_, ok := <-a.C()
	assert.False(t, ok)

	late := hub.Subscribe(Filter{}, 1)
	_, ok = <-late.C()
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers())
}

func TestHub_ConcurrentNotifyAndClose(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		sub := hub.Subscribe(Filter{}, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range sub.C() {
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = hub.Notify(context.Background(), Change{Table: TableOrders})
			}
		}()
	}

	hub.Close()
	wg.Wait()
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	var calls []string
	first := errors.New("amqp down")
	m := Multi{
		Func(func(context.Context, Change) error { calls = append(calls, "a"); return first }),
		Nop{},
		Func(func(context.Context, Change) error { calls = append(calls, "c"); return nil }),
	}

	err := m.Notify(context.Background(), Change{Table: TableCart})
	require.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "c"}, calls)

	require.NoError(t, Multi{Nop{}}.Notify(context.Background(), Change{}))
}
