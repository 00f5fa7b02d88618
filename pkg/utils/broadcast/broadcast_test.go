package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func collect[T any](ch <-chan T, wg *sync.WaitGroup, out *[]T) {
	defer wg.Done()
	for v := range ch {
		*out = append(*out, v)
	}
}

func TestBroadcastServer_fanOut(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source, WithSendTimeout[int](time.Second))

	var got1, got2 []int
	wg := sync.WaitGroup{}
	wg.Add(2)
	go collect(b.Subscribe(), &wg, &got1)
	go collect(b.Subscribe(), &wg, &got2)

	for i := 0; i < 100; i++ {
		source <- i
	}
	close(source)
	wg.Wait()
	<-b.Done()

	assert.Len(t, got1, 100)
	assert.Equal(t, got1, got2)
	assert.Equal(t, 99, got2[99])
}

func TestBroadcastServer_slowListenerIsSkipped(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("slow", source, WithSendTimeout[int](time.Millisecond))
	slow := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			source <- i
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked by slow listener")
	}
	b.Close()
	n := 0
	for range slow {
		n++
	}
	assert.Less(t, n, 5)
}

func TestBroadcastServer_cancelSubscription(t *testing.T) {
	source := make(chan string)
	b := NewBroadcastServer("cancel", source, WithBufferSize[string](1))
	ch := b.Subscribe()
	b.CancelSubscription(ch)
	_, ok := <-ch
	assert.False(t, ok)

	b.Close()
	// subscribing after close yields a closed channel
	_, ok = <-b.Subscribe()
	assert.False(t, ok)
}
