// Package mocks provides shared test doubles for the scheduler's external
// collaborators.
//
// Each mock is a struct with a function field per interface method, default
// return values, and call tracking:
//
//	provider := &mocks.MockDetailProvider{
//	    FetchDetailFn: func(ctx context.Context, id string) (*domain.Detail, error) {
//	        return &domain.Detail{ItemID: id, Available: true}, nil
//	    },
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Record calls under a mutex so concurrent callers can be verified
package mocks
