package sink

import (
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
)

// SearchSink feeds sanitized messages into the Bluge full-text index.
type SearchSink struct {
	repository repositories.ISearchRepository
}

func NewSearchSink(repository repositories.ISearchRepository) SearchSink {
	return SearchSink{repository: repository}
}

func (s SearchSink) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.SanitizedMessage)
	if !ok {
		return nil
	}
	return s.repository.IndexMessage(toStoredMessage(evt))
}
