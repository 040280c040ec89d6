package circuitbreaker

// DummyCircuitBreaker accepts all requests and never trips. Used when the
// breaker is turned off.
type DummyCircuitBreaker struct{}

func NewDummyCircuitBreaker() *DummyCircuitBreaker {
	return &DummyCircuitBreaker{}
}

func (cb *DummyCircuitBreaker) Execute(f func() (interface{}, error)) (interface{}, error) {
	return f()
}
