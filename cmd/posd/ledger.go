package main

import (
	"sync"

	"github.com/valterra/pos/pkg/pos"
	"github.com/valterra/pos/pkg/types"
)

// inMemoryToken is a toy TokenFacade backing posd's demo runs: balances live
// only for the process lifetime of a single invocation, reconstructed from
// the replayed operation log each time posd starts (see state.go).
type inMemoryToken struct {
	mu       sync.Mutex
	balances map[types.Address]pos.Amount
}

func newInMemoryToken() *inMemoryToken {
	return &inMemoryToken{balances: make(map[types.Address]pos.Amount)}
}

func (t *inMemoryToken) credit(addr types.Address, amt pos.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[addr] = t.balances[addr].Add(amt)
}

func (t *inMemoryToken) ReadBalance(tok, addr types.Address) (pos.Amount, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[addr], nil
}

func (t *inMemoryToken) Transfer(tok, src, dst types.Address, amt pos.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := t.balances[src]
	if bal.LessThan(amt) {
		return pos.ErrStorageFailure
	}
	t.balances[src] = bal.CheckedSub(amt)
	t.balances[dst] = t.balances[dst].Add(amt)
	return nil
}

func (t *inMemoryToken) Credit(tok, dst types.Address, amt pos.Amount) error {
	t.credit(dst, amt)
	return nil
}
