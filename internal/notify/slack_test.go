package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

func TestNewSlackValidation(t *testing.T) {
	if _, err := NewSlack("", "#sales", nil); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewSlack("xoxb-test", "", nil); err == nil {
		t.Error("expected error for empty channel")
	}
}

func TestTicketReadyPostsMessage(t *testing.T) {
	var gotChannel, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotChannel = r.FormValue("channel")
		gotText = r.FormValue("text")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": gotChannel, "ts": "1.0"})
	}))
	defer srv.Close()

	n, err := NewSlack("xoxb-test", "#sales", nil, slack.OptionAPIURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	n.TicketReady(&protocol.Ticket{
		Code:          "TKT-1A2B3C4D",
		CustomerName:  "Dana Reyes",
		CustomerEmail: "dana@corp.example",
		Fields:        protocol.FieldSet{LaptopModel: "XPS 13", Quantity: "25"},
	})

	if gotChannel != "#sales" {
		t.Errorf("channel = %q", gotChannel)
	}
	if !strings.Contains(gotText, "TKT-1A2B3C4D") || !strings.Contains(gotText, "XPS 13") {
		t.Errorf("text = %q", gotText)
	}
}
