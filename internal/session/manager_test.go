package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerGetReusesMachinePerChat(t *testing.T) {
	m := NewManager(func() *Machine { return NewMachine(&stubProcessor{}, nil) })

	first := m.Get(1)
	require.NotNil(t, first)
	assert.Same(t, first, m.Get(1))
	assert.NotSame(t, first, m.Get(2))
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	m := NewManager(func() *Machine { return NewMachine(&stubProcessor{}, nil) })

	alice := m.Get(1)
	bob := m.Get(2)

	_ = alice.Handle(FileEvent{Data: validWorkbook(t)})
	assert.Equal(t, StateAwaitingHorizonDays, alice.State())
	assert.Equal(t, StateAwaitingFile, bob.State())
}

func TestManagerClear(t *testing.T) {
	m := NewManager(func() *Machine { return NewMachine(&stubProcessor{}, nil) })

	before := m.Get(1)
	_ = before.Handle(FileEvent{Data: validWorkbook(t)})

	m.Clear(1)
	after := m.Get(1)
	assert.NotSame(t, before, after)
	assert.Equal(t, StateAwaitingFile, after.State())
}

func TestManagerConcurrentGet(t *testing.T) {
	m := NewManager(func() *Machine { return NewMachine(&stubProcessor{}, nil) })

	var wg sync.WaitGroup
	machines := make([]*Machine, 50)
	for i := range machines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			machines[i] = m.Get(7)
		}(i)
	}
	wg.Wait()

	for _, got := range machines {
		assert.Same(t, machines[0], got)
	}
}
