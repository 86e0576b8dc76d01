package envelope_test

import (
	"errors"
	"time"

	. "github.com/dogmatiq/docjournal/envelope"
	. "github.com/dogmatiq/docjournal/fixtures"
	. "github.com/dogmatiq/docjournal/internal/x/gomegax"
	"github.com/dogmatiq/docjournal/record"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Marshal()", func() {
	It("marshals the event payload", func() {
		env := NewEnvelope("user-1", 1, UserRegistered{Name: "Bob"})

		rec, err := Marshal(Marshaler, env)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(rec.EntityID).To(Equal("user-1"))
		Expect(rec.SequenceNr).To(BeNumerically("==", 1))
		Expect(rec.Manifest).To(Equal("UserRegistered"))
		Expect(rec.SerializerID).To(HavePrefix("application/json"))
		Expect(rec.Payload).To(MatchJSON(`{"Name":"Bob"}`))
		Expect(rec.WriterID).To(Equal(WriterID))
	})

	It("preserves the timestamp", func() {
		env := NewEnvelope("user-1", 1, UserRegistered{})
		env.Timestamp = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

		rec, err := Marshal(Marshaler, env)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(rec.Timestamp).To(BeTemporally("==", env.Timestamp))
	})

	It("assigns a timestamp if the envelope does not have one", func() {
		env := NewEnvelope("user-1", 1, UserRegistered{})
		env.Timestamp = time.Time{}

		rec, err := Marshal(Marshaler, env)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(rec.Timestamp).To(BeTemporally("~", time.Now(), time.Second))
	})

	It("unwraps tagged events and merges their tags", func() {
		env := NewEnvelope(
			"user-1",
			1,
			Tagged{
				Event: UserRegistered{Name: "Bob"},
				Tags:  []string{"users", "admins"},
			},
			"users", "accounts",
		)

		rec, err := Marshal(Marshaler, env)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(rec.Manifest).To(Equal("UserRegistered"))
		Expect(rec.Tags).To(Equal([]string{"accounts", "admins", "users"}))
	})

	It("leaves the tags empty if there are none", func() {
		rec, err := Marshal(Marshaler, NewEnvelope("user-1", 1, UserRegistered{}))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(rec.Tags).To(BeEmpty())
	})

	It("does not persist the sender", func() {
		env := NewEnvelope("user-1", 1, UserRegistered{Name: "Bob"})
		env.Sender = "<sender>"

		rec, err := Marshal(Marshaler, env)
		Expect(err).ShouldNot(HaveOccurred())

		out, err := Unmarshal(Marshaler, rec)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(out.Sender).To(BeEmpty())
	})

	It("returns an error if the event type is not supported by the marshaler", func() {
		type unknown struct{}

		_, err := Marshal(Marshaler, NewEnvelope("user-1", 7, unknown{}))
		Expect(err).To(MatchError(ContainSubstring(`unable to marshal event #7 of "user-1"`)))
	})
})

var _ = Describe("func MustMarshal()", func() {
	It("panics if the event can not be marshaled", func() {
		Expect(func() {
			MustMarshal(Marshaler, NewEnvelope("user-1", 1, struct{}{}))
		}).To(Panic())
	})
})

var _ = Describe("func Unmarshal()", func() {
	It("reverses Marshal()", func() {
		in := NewEnvelope("user-1", 3, UserRenamed{Name: "Robert"}, "users")
		in.IsDeleted = true

		rec := MustMarshal(Marshaler, in)

		out, err := Unmarshal(Marshaler, rec)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(out).To(EqualX(in))
	})

	It("returns an error that identifies the record", func() {
		rec := record.Event{
			ID:           "<id>",
			SerializerID: "application/json; type=UserRenamed",
			Payload:      []byte("{"),
		}

		_, err := Unmarshal(Marshaler, rec)
		Expect(err).To(MatchError(ContainSubstring(`unable to unmarshal event record "<id>"`)))
		Expect(errors.Unwrap(err)).NotTo(BeNil())
	})
})

var _ = Describe("func NewWriterID()", func() {
	It("returns a unique ID", func() {
		Expect(NewWriterID()).NotTo(Equal(NewWriterID()))
	})
})
