package linkmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueFifoOrder(t *testing.T) {
	queue := NewSafeQueue[int]()
	queue.Enqueue(1)
	queue.Enqueue(2)
	queue.Enqueue(3)
	assert.Equal(t, 3, queue.Len())

	for expected := 1; expected <= 3; expected++ {
		item, ok := queue.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, expected, item)
	}
}

func TestQueueBlockingDequeue(t *testing.T) {
	queue := NewSafeQueue[string]()
	done := make(chan string)
	go func() {
		item, _ := queue.Dequeue()
		done <- item
	}()

	select {
	case <-done:
		t.Fatal("dequeue returned on empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	queue.Enqueue("status")
	select {
	case item := <-done:
		assert.Equal(t, "status", item)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestQueueClose(t *testing.T) {
	queue := NewSafeQueue[int]()
	queue.Enqueue(1)
	queue.Close()

	// Residual elements stay readable after close
	item, ok := queue.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, 1, item)

	_, ok = queue.Dequeue()
	assert.False(t, ok)

	// Enqueue after close is dropped
	queue.Enqueue(2)
	_, ok = queue.Dequeue()
	assert.False(t, ok)
}

func TestQueueCloseWakesConsumer(t *testing.T) {
	queue := NewSafeQueue[int]()
	done := make(chan bool)
	go func() {
		_, ok := queue.Dequeue()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	queue.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("close did not wake the consumer")
	}
}
