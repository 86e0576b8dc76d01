package query

import (
	"github.com/dogmatiq/docjournal/document"
	"github.com/dogmatiq/docjournal/record"
)

// UniqueEntitiesIndex is the name of the index over unique-entity markers.
const UniqueEntitiesIndex = "UniqueEntities"

// EventsByTagIndex returns the name of the index over the event records in the
// given namespace.
func EventsByTagIndex(keys record.Keys) string {
	return keys.Namespace + "EventsByTag"
}

// Indexes returns the definitions of the indexes used by queries against the
// given namespace.
func Indexes(keys record.Keys) []document.Index {
	return []document.Index{
		{
			Name:       EventsByTagIndex(keys),
			Collection: keys.EventsCollection(),
			Terms: func(doc document.Document) ([]string, error) {
				rec, err := record.Unmarshal[record.Event](doc)
				if err != nil {
					return nil, err
				}
				return rec.Tags, nil
			},
		},
		{
			Name:       UniqueEntitiesIndex,
			Collection: record.UniqueEntitiesCollection + "/",
		},
	}
}
