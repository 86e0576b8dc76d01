package record_test

import (
	"time"

	"github.com/dogmatiq/docjournal/document"
	. "github.com/dogmatiq/docjournal/internal/x/gomegax"
	. "github.com/dogmatiq/docjournal/record"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Unmarshal()", func() {
	It("decodes a record encoded by Marshal()", func() {
		ev := Event{
			EntityID:     "user-1",
			SequenceNr:   3,
			Payload:      []byte("<payload>"),
			SerializerID: "application/json; type=Registered",
			Manifest:     "Registered",
			Tags:         []string{"users"},
			Timestamp:    time.Date(2020, 1, 2, 3, 4, 5, 123456789, time.UTC),
			WriterID:     "<writer>",
		}

		data, err := Marshal(ev)
		Expect(err).ShouldNot(HaveOccurred())

		doc := document.Document{
			ID:   "<id>",
			Body: data,
		}

		got, err := Unmarshal[Event](doc)
		Expect(err).ShouldNot(HaveOccurred())

		ev.ID = "<id>"
		Expect(got).To(EqualX(ev))
	})

	It("returns an error that identifies a corrupt record", func() {
		_, err := Unmarshal[Metadata](document.Document{
			ID:   "<id>",
			Body: []byte{0xff, 0x00},
		})
		Expect(err).To(MatchError(ContainSubstring(`"<id>"`)))
	})
})
