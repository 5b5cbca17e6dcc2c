package extractor

import (
	"fmt"
	"strings"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

func extractionPrompt(subject, body string) string {
	return fmt.Sprintf(`You are an assistant extracting quote request details from customer emails.

Email Subject: %s

Email Content:
%s

Extract the following fields as JSON. If a field is not mentioned, set it to null:
- customer_name: The customer's full name
- customer_email: The customer's email address
- laptop_model: Specific laptop model (brand and model number)
- ram: RAM size (e.g., "16GB", "32GB")
- storage: Storage size and type (e.g., "512GB SSD", "1TB HDD")
- screen_size: Screen size (e.g., "14-inch", "15.6-inch")
- warranty: Warranty details (e.g., "3-year ProSupport", "1 year")
- quantity: Number of laptops (e.g., "25 units", "10")
- delivery_location: Full delivery address or location
- delivery_timeline: When they need delivery (e.g., "March 15, 2026", "ASAP")
- budget: Their budget if mentioned (e.g., "$30,000", "around 50k")

Return ONLY valid JSON with these exact field names. Do not include any explanation or markdown formatting.`, subject, body)
}

func followupPrompt(customerName string, missing []protocol.FieldKey, fields protocol.FieldSet) string {
	if customerName == "" {
		customerName = "there"
	}

	var provided []string
	missingSet := make(map[protocol.FieldKey]bool, len(missing))
	for _, k := range missing {
		missingSet[k] = true
	}
	for _, k := range protocol.Fields() {
		if v := fields.Get(k); v != "" && !missingSet[k] && k != protocol.FieldBudget {
			provided = append(provided, fmt.Sprintf("%s: %s", k.Label(), v))
		}
	}
	providedContext := "your laptop quote request"
	if len(provided) > 0 {
		providedContext = strings.Join(provided, "\n")
	}

	return fmt.Sprintf(`You are a professional sales assistant. Generate a friendly, concise follow-up email asking for missing information.

Customer name: %s

Information they already provided:
%s

Missing information needed:
%s

Generate a professional email with:
1. A subject line (just the subject, no "Subject:" prefix)
2. The email body

The email should:
- Be warm and professional
- Thank them for their inquiry
- Mention what they already provided (briefly)
- Ask for the specific missing details in a clear list
- Keep it concise (under 150 words)

Return in this exact JSON format:
{
    "subject": "subject line here",
    "body": "email body here"
}

Return ONLY the JSON, no markdown formatting or explanations.`, customerName, providedContext, strings.Join(labels(missing), ", "))
}

func labels(keys []protocol.FieldKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Label()
	}
	return out
}
