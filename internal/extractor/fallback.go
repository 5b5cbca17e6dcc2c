package extractor

import (
	"fmt"
	"strings"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// FallbackFollowup is the deterministic template used when follow-up
// generation fails. It lists the missing field labels verbatim.
func FallbackFollowup(customerName string, missing []protocol.FieldKey) (subject, body string) {
	greeting := "Hello"
	if customerName != "" {
		greeting = "Hello " + customerName
	}

	var list strings.Builder
	for _, k := range missing {
		fmt.Fprintf(&list, "- %s\n", k.Label())
	}

	subject = "Additional Information Needed for Your Quote Request"
	body = fmt.Sprintf(`%s,

Thank you for your laptop quote request. To provide you with an accurate quote, I need a few more details:

%s
Please reply to this email with the above information, and I'll get your quote to you promptly.

Best regards,
Sales Team`, greeting, list.String())
	return subject, body
}
