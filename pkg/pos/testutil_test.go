package pos

// mockToken is an in-memory TokenFacade used across the package's tests. It
// never fails a transfer unless an address has been pre-configured via
// failOn, which tests use to exercise the ErrStorageFailure/fatal path.
type mockToken struct {
	balances map[Address]map[Address]uint64 // token -> addr -> balance
	failOn   map[Address]bool
}

func newMockToken() *mockToken {
	return &mockToken{
		balances: make(map[Address]map[Address]uint64),
		failOn:   make(map[Address]bool),
	}
}

func (m *mockToken) credit(tok, addr Address, amt uint64) {
	if m.balances[tok] == nil {
		m.balances[tok] = make(map[Address]uint64)
	}
	m.balances[tok][addr] += amt
}

func (m *mockToken) ReadBalance(tok, addr Address) (Amount, error) {
	return AmountFromUint64(m.balances[tok][addr]), nil
}

func (m *mockToken) Transfer(tok, src, dst Address, amt Amount) error {
	if m.failOn[dst] {
		return ErrStorageFailure
	}
	if m.balances[tok] == nil {
		m.balances[tok] = make(map[Address]uint64)
	}
	v := amt.Uint64()
	m.balances[tok][src] -= v
	m.balances[tok][dst] += v
	return nil
}

func (m *mockToken) Credit(tok, dst Address, amt Amount) error {
	m.credit(tok, dst, amt.Uint64())
	return nil
}

var (
	stakingTokenAddr = testAddr(200)
	posAccountAddr   = testAddr(201)
	slashPoolAddr    = testAddr(202)
)

func newTestCore(params Params) (*Core, *mockToken) {
	tok := newMockToken()
	core, err := NewCore(params, tok, stakingTokenAddr, posAccountAddr, slashPoolAddr)
	if err != nil {
		panic(err)
	}
	return core, tok
}
