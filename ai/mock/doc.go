// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	// Create a mock oracle that answers every request the same way
//	oracle := mock.NewMockOracle().
//	    WithCompleteFunc(func(ctx context.Context, system, user string) (string, error) {
//	        return `{"scores":[]}`, nil
//	    })
//
//	// Check call counts
//	count := oracle.CallCount()
//
// # Default Behavior
//
//   - MockOracle: Fails every call with ai.ErrUnavailable, which exercises
//     the local fallback paths of every classifier
//   - MockProvider: Wraps a MockOracle
package mock
