// Package mocks provides shared fakes for the service and messaging
// interfaces, so handler and bot tests do not each define their own.
//
// Every mock has one function field per method. A nil field falls back to
// the mock's default return values:
//
//	records := &mocks.MockRecordService{
//	    GetFn: func(ctx context.Context, id int) (*domain.Record, error) {
//	        return &domain.Record{ID: id, Title: "Broken lamp"}, nil
//	    },
//	}
package mocks
