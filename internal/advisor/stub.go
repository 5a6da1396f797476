package advisor

import "context"

// StubAdvisor is a deterministic Client test double: it always returns a
// fixed Guidance (or a fixed error), never makes a network call.
type StubAdvisor struct {
	Guidance Guidance
	Err      error
}

// Advise returns the configured Guidance/Err, ignoring the request.
func (s *StubAdvisor) Advise(ctx context.Context, req Request) (Guidance, error) {
	return s.Guidance, s.Err
}
