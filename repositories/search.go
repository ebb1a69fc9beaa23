package repositories

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
)

type ISearchRepository interface {
	IndexMessage(message StoredMessage) error
	Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]SearchHit, error)
}

// SearchHit is one full-text match inside a room's history.
type SearchHit struct {
	MessageID string
	Room      domain.RoomID
	Sender    string
	Content   string
	At        time.Time
}

// SearchRepository maintains the Bluge full-text index next to the Badger
// message log. Indexing is best-effort; the message log stays authoritative.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) *SearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

func (s *SearchRepository) IndexMessage(message StoredMessage) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("room", string(message.Room)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.Sender).StoreValue()).
		AddField(bluge.NewKeywordField("at", message.At.UTC().Format(time.RFC3339Nano)).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message contents, optionally scoped to one
// room, and returns up to limit hits ordered by relevance.
func (s *SearchRepository) Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]SearchHit, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close bluge reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content"))
	if room != "" {
		query.AddMust(bluge.NewTermQuery(string(room)).SetField("room"))
	}

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit SearchHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "room":
				hit.Room = domain.RoomID(value)
			case "sender":
				hit.Sender = string(value)
			case "content":
				hit.Content = string(value)
			case "at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
