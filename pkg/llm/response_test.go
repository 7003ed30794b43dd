package llm_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatzilla/pkg/llm"
)

var _ = Describe("Reply", func() {
	const raw = `{"model":"llama3.1","response":"An impasta!","done":true,"context":[128006,882],"total_duration":4935620900}`

	var reply *llm.Reply

	BeforeEach(func() {
		reply = llm.NewReply("An impasta!", []byte(raw))
	})

	It("exposes the extracted text", func() {
		Expect(reply.Text()).To(Equal("An impasta!"))
		Expect(reply.String()).To(Equal("An impasta!"))
	})

	It("keeps the payload verbatim", func() {
		Expect(string(reply.Raw())).To(Equal(raw))
	})

	It("decodes the payload with numbers intact", func() {
		payload, err := reply.Payload()
		Expect(err).NotTo(HaveOccurred())
		Expect(payload).To(HaveKeyWithValue("response", "An impasta!"))
		Expect(payload).To(HaveKeyWithValue("done", true))
		Expect(payload["total_duration"]).To(Equal(json.Number("4935620900")))
		Expect(payload["context"]).To(HaveLen(2))
	})

	It("decodes into a caller type", func() {
		var out struct {
			Model   string `json:"model"`
			Context []int  `json:"context"`
		}
		Expect(reply.Decode(&out)).To(Succeed())
		Expect(out.Model).To(Equal("llama3.1"))
		Expect(out.Context).To(Equal([]int{128006, 882}))
	})

	It("errors when there is no payload", func() {
		_, err := llm.NewReply("text", nil).Payload()
		Expect(err).To(HaveOccurred())
	})
})
